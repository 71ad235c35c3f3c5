// Package assistant proxies chat widget queries to an OpenAI-compatible
// chat-completions API. The service never interprets the conversation; it
// forwards the history and returns the first choice.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"

	// System prompt shown to the model ahead of the user conversation.
	defaultSystemPrompt = "Eres un asistente médico virtual útil. Responde preguntas sobre pacientes y estudios médicos de forma concisa."
)

// ErrNotConfigured means no API key was provided; the chat endpoint is off.
var ErrNotConfigured = errors.New("assistant: API key is not configured")

// Message is one turn of the conversation, role "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls the upstream chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	system  string
	http    *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithBaseURL overrides the upstream API base URL (useful for tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// WithSystemPrompt overrides the system message.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		if prompt = strings.TrimSpace(prompt); prompt != "" {
			c.system = prompt
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New constructs a Client. An empty apiKey yields a client whose Reply always
// returns ErrNotConfigured.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   defaultModel,
		system:  defaultSystemPrompt,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Reply sends the conversation history upstream and returns the assistant's
// answer.
func (c *Client) Reply(ctx context.Context, history []Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: c.system})
	messages = append(messages, history...)

	payload := map[string]any{
		"model":      c.model,
		"messages":   messages,
		"max_tokens": 150,
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("assistant upstream error: %s", resp.Status)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("assistant returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
