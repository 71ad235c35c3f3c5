package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sistemamedico.org/internal/audit"
	"sistemamedico.org/internal/auth"
)

const sessionTTL = 12 * time.Hour

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	RoleID   int64  `json:"id_Rol"`
}

type loginResponse struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	User      loginUser  `json:"user"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	cred, err := a.logins.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
				"username": req.Username,
			})
			// Same message for unknown user and wrong password.
			writeError(w, r, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}

	userID := strconv.FormatInt(cred.ID, 10)
	var token string
	var expiresAt *time.Time
	if auth.TokensConfigured() {
		token, err = auth.GenerateToken(userID, cred.Name, cred.Role, sessionTTL)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "token generation failed")
			return
		}
		exp := time.Now().UTC().Add(sessionTTL)
		expiresAt = &exp
	}

	_ = audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"username": cred.Username,
		"role":     cred.Role,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
		User: loginUser{
			ID:       cred.ID,
			Username: cred.Username,
			Name:     cred.Name,
			Role:     cred.Role,
			RoleID:   cred.RoleID,
		},
	})
}
