package model

import (
	"errors"
	"fmt"
)

// Validation errors. Each one is wrapped in a *ValidationError naming the offending field.
var (
	ErrValidation          = errors.New("validation failed")
	ErrEmptyText           = errors.New("text must not be blank")
	ErrEmptyTitle          = errors.New("title must not be blank")
	ErrInvalidOptions      = errors.New("invalid options")
	ErrInvalidTimeLimit    = errors.New("time limit must be a positive number of minutes")
	ErrInvalidQuestionType = errors.New("unknown question type")
	ErrInvalidLanguage     = errors.New("unsupported language")
	ErrInvalidStudent      = errors.New("student name must not be blank")
)

// Reference and allocation errors.
var (
	ErrNotFound                 = errors.New("not found")
	ErrExamNotFound             = fmt.Errorf("exam %w", ErrNotFound)
	ErrUnknownAccessCode        = fmt.Errorf("access code: %w", ErrExamNotFound)
	ErrForeignQuestionReference = errors.New("answer references a question outside the exam")
	ErrCodeGenerationExhausted  = errors.New("access code generation exhausted")
	ErrConcurrencyConflict      = errors.New("access code allocation conflict")
	ErrUsernameTaken            = errors.New("username already taken")
)

// ValidationError reports bad instructor or student input.
// It unwraps to the specific sentinel (ErrEmptyText, ErrInvalidOptions, ...) and
// matches ErrValidation.
type ValidationError struct {
	Field  string
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Field, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field string, err error, detail string) error {
	return &ValidationError{Field: field, Err: err, Detail: detail}
}
