package grading

import (
	"math"
	"strconv"
	"time"

	"github.com/pavelanni/lesspaper/internal/model"
)

// QuestionStat counts answers and correct answers for one question.
type QuestionStat struct {
	QuestionID    int64              `json:"question_id"`
	Label         string             `json:"label"`
	Type          model.QuestionType `json:"question_type"`
	AnsweredCount int                `json:"answered_count"`
	CorrectCount  int                `json:"correct_count"`
}

// TypeCount is the number of questions of one variant.
type TypeCount struct {
	Type  model.QuestionType `json:"type"`
	Count int                `json:"count"`
}

// Overview is the instructor dashboard summary across exams.
type Overview struct {
	TotalExams                int `json:"total_exams"`
	TotalSubmissions          int `json:"total_submissions"`
	AverageSubmissionsPerExam int `json:"average_submissions_per_exam"`
}

// StudentOutcome is one row of the per-student results table.
type StudentOutcome struct {
	SubmissionID int64     `json:"submission_id"`
	StudentName  string    `json:"student_name"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Summary
	Verdict Verdict `json:"verdict"`
}

// Report is everything the results page shows for one exam.
type Report struct {
	ExamID      int64            `json:"exam_id"`
	Submissions int              `json:"submissions"`
	Threshold   float64          `json:"pass_threshold"`
	Questions   []QuestionStat   `json:"questions"`
	Types       []TypeCount      `json:"types"`
	Students    []StudentOutcome `json:"students"`
}

// PerQuestionStats reports, in exam question order, how many submissions gave a
// non-empty answer to each question and how many were correct (MCQ only).
func PerQuestionStats(exam model.Exam, subs []model.Submission) []QuestionStat {
	stats := make([]QuestionStat, 0, len(exam.Questions))
	for i, q := range exam.Questions {
		st := QuestionStat{QuestionID: q.ID, Label: questionLabel(i), Type: q.Type()}
		for _, sub := range subs {
			a, _ := sub.Answer(q.ID)
			if a.AnswerText != "" {
				st.AnsweredCount++
			}
			if ScoreAnswer(q, a) == StatusCorrect {
				st.CorrectCount++
			}
		}
		stats = append(stats, st)
	}
	return stats
}

// TypeDistribution counts questions per variant, omitting variants with no questions.
func TypeDistribution(exam model.Exam) []TypeCount {
	counts := make(map[model.QuestionType]int, len(model.QuestionTypes))
	for _, q := range exam.Questions {
		counts[q.Type()]++
	}
	var out []TypeCount
	for _, t := range model.QuestionTypes {
		if counts[t] > 0 {
			out = append(out, TypeCount{Type: t, Count: counts[t]})
		}
	}
	return out
}

// ExamSummary totals submissions across exams. The average is rounded to the
// nearest integer and is 0 when there are no exams.
func ExamSummary(exams []model.Exam, submissionsByExam map[int64][]model.Submission) Overview {
	o := Overview{TotalExams: len(exams)}
	for _, e := range exams {
		o.TotalSubmissions += len(submissionsByExam[e.ID])
	}
	if o.TotalExams > 0 {
		o.AverageSubmissionsPerExam = int(math.Round(float64(o.TotalSubmissions) / float64(o.TotalExams)))
	}
	return o
}

// BuildReport reduces an exam's results into the results page statistics.
func BuildReport(res model.ExamResults, threshold float64) Report {
	students := make([]StudentOutcome, 0, len(res.Submissions))
	for _, sub := range res.Submissions {
		sum := SummarizeScore(ScoreSubmission(res.Exam, sub))
		students = append(students, StudentOutcome{
			SubmissionID: sub.ID,
			StudentName:  sub.StudentName,
			SubmittedAt:  sub.SubmittedAt,
			Summary:      sum,
			Verdict:      sum.Verdict(threshold),
		})
	}
	return Report{
		ExamID:      res.Exam.ID,
		Submissions: len(res.Submissions),
		Threshold:   threshold,
		Questions:   PerQuestionStats(res.Exam, res.Submissions),
		Types:       TypeDistribution(res.Exam),
		Students:    students,
	}
}

func questionLabel(i int) string {
	return "Q" + strconv.Itoa(i+1)
}
