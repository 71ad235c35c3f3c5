package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"sistemamedico.org/internal/assistant"
	"sistemamedico.org/internal/obs"
)

type chatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, r, http.StatusBadRequest, "messages are required")
		return
	}
	for _, m := range req.Messages {
		role := strings.TrimSpace(m.Role)
		if role != "user" && role != "assistant" {
			writeError(w, r, http.StatusBadRequest, "message roles must be user or assistant")
			return
		}
	}

	reply, err := a.chat.Reply(r.Context(), req.Messages)
	if err != nil {
		if errors.Is(err, assistant.ErrNotConfigured) {
			writeError(w, r, http.StatusServiceUnavailable, "assistant is not configured")
			return
		}
		obs.LogError("assistant request failed", err, nil)
		writeError(w, r, http.StatusBadGateway, "assistant unavailable")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
