package model

import (
	"fmt"
	"strings"
)

// NewSubmission validates a submission payload against the exam it targets.
//
// The whole payload is rejected if any answer references a question outside the exam.
// When several answers share a question id the last one wins; earlier ones are
// superseded, not an error. Answers come back in exam question order.
// ID and SubmittedAt are left for the store to assign.
func NewSubmission(exam Exam, in SubmissionInput) (Submission, error) {
	name := strings.TrimSpace(in.StudentName)
	if name == "" {
		return Submission{}, invalid("student_name", ErrInvalidStudent, "")
	}
	answers, err := NormalizeAnswers(exam, in.Answers)
	if err != nil {
		return Submission{}, err
	}
	return Submission{ExamID: exam.ID, StudentName: name, Answers: answers}, nil
}

// NormalizeAnswers applies the foreign-reference and last-wins rules.
func NormalizeAnswers(exam Exam, answers []Answer) ([]Answer, error) {
	latest := make(map[int64]string, len(answers))
	for _, a := range answers {
		if _, ok := exam.Question(a.QuestionID); !ok {
			return nil, fmt.Errorf("question %d: %w", a.QuestionID, ErrForeignQuestionReference)
		}
		latest[a.QuestionID] = a.AnswerText
	}
	out := make([]Answer, 0, len(latest))
	for _, q := range exam.Questions {
		if text, ok := latest[q.ID]; ok {
			out = append(out, Answer{QuestionID: q.ID, AnswerText: text})
		}
	}
	return out, nil
}
