package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/lesspaper/internal/model"
)

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"max=128"`
}

// handleRegister creates an instructor account when self-service signup is enabled.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.config.AllowSignup {
		writeError(w, r, errSignupDisabled)
		return
	}
	var req registerRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, r, err)
		return
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}

	id, err := h.store.CreateInstructor(model.Instructor{
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Active:       true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.store.GetInstructorByID(id)
	if err == nil && u == nil {
		err = fmt.Errorf("instructor %d missing after create: %w", id, model.ErrNotFound)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.InstructorFromContext(r.Context()))
}
