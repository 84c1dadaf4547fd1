package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/lesspaper/internal/i18n"
	"github.com/pavelanni/lesspaper/internal/model"
)

type answerRequest struct {
	QuestionID int64  `json:"question_id"`
	AnswerText string `json:"answer_text" validate:"max=65536"`
}

type submissionRequest struct {
	ExamCode    string          `json:"exam_code" validate:"required,max=32"`
	StudentName string          `json:"student_name" validate:"max=200"`
	Answers     []answerRequest `json:"answers" validate:"max=1000,dive"`
}

type submissionReceipt struct {
	ID          int64     `json:"id"`
	ExamID      int64     `json:"exam_id"`
	StudentName string    `json:"student_name"`
	SubmittedAt time.Time `json:"submitted_at"`
	Message     string    `json:"message"`
}

// handleAccess serves an exam to students by access code, without answer keys.
func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	exam, err := h.store.ResolveByCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam.ForStudents())
}

// handleSubmit records a student's answers. Scores are not returned to the student.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := model.SubmissionInput{
		ExamCode:    req.ExamCode,
		StudentName: req.StudentName,
		Answers:     make([]model.Answer, 0, len(req.Answers)),
	}
	for _, a := range req.Answers {
		in.Answers = append(in.Answers, model.Answer{QuestionID: a.QuestionID, AnswerText: a.AnswerText})
	}

	sub, err := h.store.RecordSubmission(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submissionReceipt{
		ID:          sub.ID,
		ExamID:      sub.ExamID,
		StudentName: sub.StudentName,
		SubmittedAt: sub.SubmittedAt,
		Message:     appI18n.Td(r.Context(), "SubmissionReceived", map[string]any{"Name": sub.StudentName}),
	})
}
