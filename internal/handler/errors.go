package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	appI18n "github.com/pavelanni/lesspaper/internal/i18n"
	"github.com/pavelanni/lesspaper/internal/model"
)

var (
	errBadRequest     = errors.New("malformed request")
	errInvalidField   = errors.New("invalid field")
	errUnauthorized   = errors.New("authentication required")
	errBadCredentials = errors.New("invalid credentials")
	errSignupDisabled = errors.New("signup disabled")
	errInvalidImage   = errors.New("invalid image upload")
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorMapping struct {
	err    error
	status int
	code   string
	msgID  string
}

// errorTable is checked in order; specific sentinels come before the ones they wrap into.
var errorTable = []errorMapping{
	{errBadRequest, http.StatusBadRequest, "bad_request", "ErrBadRequest"},
	{errUnauthorized, http.StatusUnauthorized, "unauthorized", "ErrUnauthorized"},
	{errBadCredentials, http.StatusUnauthorized, "bad_credentials", "ErrBadCredentials"},
	{errSignupDisabled, http.StatusForbidden, "signup_disabled", "ErrSignupDisabled"},
	{errInvalidImage, http.StatusBadRequest, "invalid_image", "ErrImageInvalid"},
	{model.ErrEmptyText, http.StatusUnprocessableEntity, "empty_text", "ErrEmptyText"},
	{model.ErrEmptyTitle, http.StatusUnprocessableEntity, "empty_title", "ErrEmptyTitle"},
	{model.ErrInvalidOptions, http.StatusUnprocessableEntity, "invalid_options", "ErrInvalidOptions"},
	{model.ErrInvalidTimeLimit, http.StatusUnprocessableEntity, "invalid_time_limit", "ErrInvalidTimeLimit"},
	{model.ErrInvalidQuestionType, http.StatusUnprocessableEntity, "invalid_question_type", "ErrInvalidQuestionType"},
	{model.ErrInvalidLanguage, http.StatusUnprocessableEntity, "invalid_language", "ErrInvalidLanguage"},
	{model.ErrInvalidStudent, http.StatusBadRequest, "invalid_student", "ErrInvalidStudent"},
	{model.ErrValidation, http.StatusUnprocessableEntity, "validation_failed", "ErrValidation"},
	{model.ErrForeignQuestionReference, http.StatusBadRequest, "foreign_question_reference", "ErrForeignQuestion"},
	{model.ErrUnknownAccessCode, http.StatusNotFound, "exam_not_found", "ErrUnknownAccessCode"},
	{model.ErrExamNotFound, http.StatusNotFound, "exam_not_found", "ErrExamNotFound"},
	{model.ErrNotFound, http.StatusNotFound, "not_found", "ErrNotFound"},
	{model.ErrUsernameTaken, http.StatusConflict, "username_taken", "ErrUsernameTaken"},
	{model.ErrConcurrencyConflict, http.StatusConflict, "concurrency_conflict", "ErrConflict"},
	{model.ErrCodeGenerationExhausted, http.StatusServiceUnavailable, "code_generation_exhausted", "ErrCodeExhausted"},
}

// writeError translates err into a status code and a localized JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("no error cause given")
	}
	resp := errorResponse{Error: "internal", Message: appI18n.T(r.Context(), "ErrInternal")}
	status := http.StatusInternalServerError
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			status = m.status
			resp.Error = m.code
			resp.Message = appI18n.T(r.Context(), m.msgID)
			break
		}
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}

	switch {
	case errors.Is(err, model.ErrCodeGenerationExhausted):
		slog.Error("access code space exhausted", "path", r.URL.Path, "error", err, "alert", true)
	case status >= http.StatusInternalServerError:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	default:
		slog.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="lesspaper"`)
	}
	writeJSON(w, status, resp)
}

// requestInvalid converts validator output into a field-level validation error.
func requestInvalid(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		return &model.ValidationError{Field: fe.Field(), Err: errInvalidField, Detail: fe.Tag()}
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
