package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/lesspaper/internal/model"
)

type tokenIDKey struct{}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// requireAuth is middleware that checks for a valid bearer token backed by a live session.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		value, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || value == "" {
			writeError(w, r, errUnauthorized)
			return
		}
		claims, err := h.tokens.Parse(value)
		if err != nil {
			slog.Debug("rejected bearer token", "error", err)
			writeError(w, r, errUnauthorized)
			return
		}
		instructorID, err := claims.InstructorID()
		if err != nil {
			writeError(w, r, errUnauthorized)
			return
		}

		sess, err := h.store.GetAuthSession(claims.ID)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			writeError(w, r, err)
			return
		}
		if sess == nil || sess.InstructorID != instructorID {
			writeError(w, r, errUnauthorized)
			return
		}

		u, err := h.store.GetInstructorByID(instructorID)
		if err != nil || u == nil || !u.Active {
			writeError(w, r, errUnauthorized)
			return
		}

		ctx := model.ContextWithInstructor(r.Context(), u)
		ctx = context.WithValue(ctx, tokenIDKey{}, claims.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleToken exchanges a username and password for a bearer token. It accepts
// a JSON body or an OAuth2-style password form.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
		if err := h.check(&req); err != nil {
			writeError(w, r, err)
			return
		}
	} else if err := h.bind(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.store.GetInstructorByUsername(req.Username)
	if err != nil {
		slog.Error("failed to get instructor", "error", err)
		writeError(w, r, err)
		return
	}
	if u == nil || !u.Active {
		writeError(w, r, errBadCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, r, errBadCredentials)
		return
	}

	tok, err := h.tokens.Issue(u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.CreateAuthSession(tok.ID, u.ID, tok.ExpiresAt); err != nil {
		slog.Error("failed to create auth session", "error", err)
		writeError(w, r, err)
		return
	}
	slog.Info("instructor signed in", "instructor_id", u.ID)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: tok.Value, TokenType: "bearer", ExpiresAt: tok.ExpiresAt})
}

// handleLogout revokes the token used for this request.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := r.Context().Value(tokenIDKey{}).(string); ok {
		if err := h.store.DeleteAuthSession(id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
