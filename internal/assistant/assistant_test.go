package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestReply(t *testing.T) {
	var captured struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	srv := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode upstream payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  El paciente tiene dos estudios.  "}}]}`))
	})

	client := New("test-key", WithBaseURL(srv.URL), WithModel("gpt-4o-mini"))
	reply, err := client.Reply(context.Background(), []Message{
		{Role: "user", Content: "¿Cuántos estudios tiene el paciente?"},
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply != "El paciente tiene dos estudios." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if captured.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %s", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("expected system prompt ahead of history, got %+v", captured.Messages)
	}
}

func TestReplyUpstreamFailure(t *testing.T) {
	srv := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	client := New("test-key", WithBaseURL(srv.URL))
	if _, err := client.Reply(context.Background(), []Message{{Role: "user", Content: "hola"}}); err == nil {
		t.Fatalf("expected upstream error")
	}
}

func TestReplyNoChoices(t *testing.T) {
	srv := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	client := New("test-key", WithBaseURL(srv.URL))
	if _, err := client.Reply(context.Background(), []Message{{Role: "user", Content: "hola"}}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestReplyNotConfigured(t *testing.T) {
	client := New("")
	if client.Configured() {
		t.Fatalf("empty key must not count as configured")
	}
	_, err := client.Reply(context.Background(), []Message{{Role: "user", Content: "hola"}})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
