package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/lesspaper/internal/auth"
	"github.com/pavelanni/lesspaper/internal/grading"
	appI18n "github.com/pavelanni/lesspaper/internal/i18n"
	"github.com/pavelanni/lesspaper/internal/model"
	"github.com/pavelanni/lesspaper/internal/storage"
	"github.com/pavelanni/lesspaper/internal/store"
)

const maxJSONBody = 1 << 20

// Config holds the transport settings.
type Config struct {
	Lang          string
	AllowSignup   bool
	PassThreshold float64
	CORSOrigins   []string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	blobs    storage.BlobStore
	tokens   *auth.Issuer
	config   Config
	validate *validator.Validate
}

// New creates a new Handler.
func New(s *store.Store, blobs storage.BlobStore, tokens *auth.Issuer, cfg Config) (*Handler, error) {
	if s == nil || blobs == nil || tokens == nil {
		return nil, fmt.Errorf("handler needs a store, a blob store, and a token issuer")
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = grading.DefaultPassThreshold
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{store: s, blobs: blobs, tokens: tokens, config: cfg, validate: v}, nil
}

// Router builds the HTTP handler with the middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(h.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Accept-Language"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}
	r.Use(appI18n.Middleware(h.config.Lang))
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/token", h.handleToken)
	r.Post("/users", h.handleRegister)

	// Student intake.
	r.Get("/access/{code}", h.handleAccess)
	r.Post("/submission", h.handleSubmit)
	r.Get("/assets/{key}", h.handleAsset)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/logout", h.handleLogout)
		r.Get("/users/me", h.handleMe)

		r.Post("/exam", h.handleCreateExam)
		r.Get("/exam", h.handleListExams)
		r.Get("/exam/{examID}", h.handleGetExam)
		r.Delete("/exam/{examID}", h.handleDeleteExam)
		r.Post("/exam/{examID}/question", h.handleAddQuestion)

		r.Get("/results/{examID}", h.handleResults)
		r.Get("/results/{examID}/scored", h.handleScored)
		r.Get("/results/{examID}/report", h.handleReport)
		r.Get("/results/{examID}/export", h.handleExport)
		r.Get("/dashboard", h.handleDashboard)
	})
}

// ownedExam loads the exam named in the URL. Exams owned by another instructor
// are reported as not found.
func (h *Handler) ownedExam(r *http.Request) (model.Exam, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil {
		return model.Exam{}, model.ErrExamNotFound
	}
	exam, err := h.store.GetExam(id)
	if err != nil {
		return model.Exam{}, err
	}
	u := model.InstructorFromContext(r.Context())
	if u == nil || exam.InstructorID != u.ID {
		return model.Exam{}, model.ErrExamNotFound
	}
	return exam, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// bind decodes a JSON body into a request DTO and runs its validate tags.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, v any) error {
	if err := decodeJSON(w, r, v); err != nil {
		return err
	}
	return h.check(v)
}

func (h *Handler) check(v any) error {
	if err := h.validate.Struct(v); err != nil {
		return requestInvalid(err)
	}
	return nil
}
