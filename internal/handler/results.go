package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pavelanni/lesspaper/internal/grading"
	"github.com/pavelanni/lesspaper/internal/model"
)

type scoredSubmission struct {
	model.Submission
	Results []grading.QuestionResult `json:"results"`
	grading.Summary
	Verdict grading.Verdict `json:"verdict"`
}

type scoredResponse struct {
	Exam        model.Exam         `json:"exam"`
	Submissions []scoredSubmission `json:"submissions"`
}

type dashboardExam struct {
	ExamID      int64  `json:"exam_id"`
	Title       string `json:"title"`
	Code        string `json:"code"`
	Questions   int    `json:"questions"`
	Submissions int    `json:"submissions"`
}

type dashboardResponse struct {
	grading.Overview
	Exams []dashboardExam `json:"exams"`
}

// handleResults returns every submission of an exam with its answers, oldest first.
func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	exam, err := h.ownedExam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	subs, err := h.store.ListSubmissions(exam.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// handleScored returns the submissions with per-question scoring and a verdict.
func (h *Handler) handleScored(w http.ResponseWriter, r *http.Request) {
	exam, err := h.ownedExam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.store.LoadResults(exam.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := scoredResponse{Exam: res.Exam, Submissions: make([]scoredSubmission, 0, len(res.Submissions))}
	for _, sub := range res.Submissions {
		results := grading.ScoreSubmission(res.Exam, sub)
		sum := grading.SummarizeScore(results)
		out.Submissions = append(out.Submissions, scoredSubmission{
			Submission: sub,
			Results:    results,
			Summary:    sum,
			Verdict:    sum.Verdict(h.config.PassThreshold),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	exam, err := h.ownedExam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.store.LoadResults(exam.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grading.BuildReport(res, h.config.PassThreshold))
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport streams the results table as a spreadsheet, or as CSV with ?format=csv.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	exam, err := h.ownedExam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format != "" && format != "xlsx" && format != "csv" {
		writeError(w, r, fmt.Errorf("%w: unsupported export format %q", errBadRequest, format))
		return
	}
	res, err := h.store.LoadResults(exam.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=results_%s.csv", exam.Code))
		if err := grading.WriteCSV(w, res); err != nil {
			slog.Error("failed to write export", "exam_id", exam.ID, "format", "csv", "error", err)
		}
		return
	}
	var buf bytes.Buffer
	if err := grading.WriteXLSX(&buf, res); err != nil {
		writeError(w, r, fmt.Errorf("export exam %d: %w", exam.ID, err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=results_%s.xlsx", exam.Code))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to send export", "exam_id", exam.ID, "error", err)
	}
}

// handleDashboard summarizes the instructor's exams.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	u := model.InstructorFromContext(r.Context())
	exams, err := h.store.ListExams(u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	byExam := make(map[int64][]model.Submission, len(exams))
	out := dashboardResponse{Exams: make([]dashboardExam, 0, len(exams))}
	for _, e := range exams {
		subs, err := h.store.ListSubmissions(e.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		byExam[e.ID] = subs
		out.Exams = append(out.Exams, dashboardExam{
			ExamID:      e.ID,
			Title:       e.Title,
			Code:        e.Code,
			Questions:   len(e.Questions),
			Submissions: len(subs),
		})
	}
	out.Overview = grading.ExamSummary(exams, byExam)
	writeJSON(w, http.StatusOK, out)
}
