package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appI18n "github.com/pavelanni/lesspaper/internal/i18n"
	"github.com/pavelanni/lesspaper/internal/model"
	"github.com/pavelanni/lesspaper/internal/storage"
)

const maxImageUpload = 10 << 20

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

type examDetail struct {
	model.Exam
	Submissions int `json:"submissions"`
}

type deleteResponse struct {
	ExamID      int64  `json:"exam_id"`
	Submissions int    `json:"submissions"`
	Message     string `json:"message"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var in model.ExamInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u := model.InstructorFromContext(r.Context())
	exam, err := h.store.CreateExam(u.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	u := model.InstructorFromContext(r.Context())
	exams, err := h.store.ListExams(u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.ownedExam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.store.SubmissionCount(exam.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, examDetail{Exam: exam, Submissions: n})
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.ownedExam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.store.DeleteExam(exam.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, key := range deleted.Images {
		if err := h.blobs.Delete(r.Context(), key); err != nil && !errors.Is(err, storage.ErrNotExist) {
			slog.Warn("failed to delete question image", "exam_id", exam.ID, "key", key, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, deleteResponse{
		ExamID:      exam.ID,
		Submissions: deleted.Submissions,
		Message:     appI18n.Tp(r.Context(), "ExamDeleted", deleted.Submissions),
	})
}

// handleAddQuestion appends a question and returns it. A JSON body carries the
// question payload; a multipart form carries the same fields plus an optional image part.
func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	exam, err := h.ownedExam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in model.QuestionInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err = h.questionFromForm(w, r, exam.ID)
	} else {
		err = decodeJSON(w, r, &in)
		// Image handles are only ever minted by an upload.
		in.Image = ""
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	q, err := h.store.InsertQuestion(exam.ID, in)
	if err != nil {
		if in.Image != "" {
			_ = h.blobs.Delete(r.Context(), in.Image)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// questionFromForm reads the multipart question payload. The question is
// validated before the image is stored so a rejected question leaves no blob.
func (h *Handler) questionFromForm(w http.ResponseWriter, r *http.Request, examID int64) (model.QuestionInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload+maxJSONBody)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		return model.QuestionInput{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	in := model.QuestionInput{
		QuestionType:  model.QuestionType(r.FormValue("question_type")),
		Text:          r.FormValue("text"),
		CorrectAnswer: r.FormValue("correct_answer"),
		Language:      model.Language(r.FormValue("language")),
		StarterCode:   r.FormValue("starter_code"),
	}
	if raw := r.FormValue("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Options); err != nil {
			return model.QuestionInput{}, fmt.Errorf("%w: options: %v", errBadRequest, err)
		}
	}
	if _, err := model.ValidateQuestion(in); err != nil {
		return model.QuestionInput{}, err
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return model.QuestionInput{}, fmt.Errorf("%w: %v", errInvalidImage, err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		return model.QuestionInput{}, fmt.Errorf("%w: extension %q", errInvalidImage, ext)
	}
	key := fmt.Sprintf("img_%d_%s%s", examID, uuid.NewString(), ext)
	if err := h.blobs.Put(r.Context(), key, file, storage.ContentType(key)); err != nil {
		return model.QuestionInput{}, fmt.Errorf("store image: %w", err)
	}
	slog.Info("stored question image", "exam_id", examID, "key", key, "bytes", header.Size)
	in.Image = key
	return in, nil
}

// handleAsset streams a stored question image.
func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if storage.ValidateKey(key) != nil {
		writeError(w, r, model.ErrNotFound)
		return
	}
	rc, err := h.blobs.Get(r.Context(), key)
	if errors.Is(err, storage.ErrNotExist) {
		writeError(w, r, model.ErrNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", storage.ContentType(key))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("failed to stream asset", "key", key, "error", err)
	}
}
