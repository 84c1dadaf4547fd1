package model

import (
	"context"
	"strings"
	"time"
)

// Instructor is an authenticated exam author.
type Instructor struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession records an issued bearer token. A token is honored only while its
// session exists and has not expired.
type AuthSession struct {
	ID           string
	InstructorID int64
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type instructorCtxKey struct{}

// ContextWithInstructor stores the authenticated instructor in the request context.
func ContextWithInstructor(ctx context.Context, u *Instructor) context.Context {
	return context.WithValue(ctx, instructorCtxKey{}, u)
}

// InstructorFromContext retrieves the authenticated instructor from context, or nil.
func InstructorFromContext(ctx context.Context) *Instructor {
	u, _ := ctx.Value(instructorCtxKey{}).(*Instructor)
	return u
}

// ExamInput is the payload for creating an exam.
type ExamInput struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	TimeLimit   int    `json:"time_limit" yaml:"time_limit"`
}

// Validate checks the exam metadata rules.
func (in ExamInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", ErrEmptyTitle, "")
	}
	if in.TimeLimit <= 0 {
		return invalid("time_limit", ErrInvalidTimeLimit, "")
	}
	return nil
}

// Exam is an ordered collection of questions reachable by its access code.
type Exam struct {
	ID           int64      `json:"id"`
	InstructorID int64      `json:"instructor_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	TimeLimit    int        `json:"time_limit"`
	Code         string     `json:"code"`
	CreatedAt    time.Time  `json:"created_at"`
	Questions    []Question `json:"questions"`
}

// Question looks up a question of this exam by id.
func (e Exam) Question(id int64) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// StudentExam is the exam as served on the student intake path.
type StudentExam struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	TimeLimit   int               `json:"time_limit"`
	Code        string            `json:"code"`
	Questions   []StudentQuestion `json:"questions"`
}

// ForStudents strips answer keys and instructor details.
func (e Exam) ForStudents() StudentExam {
	qs := make([]StudentQuestion, 0, len(e.Questions))
	for _, q := range e.Questions {
		qs = append(qs, q.ForStudent())
	}
	return StudentExam{
		Title:       e.Title,
		Description: e.Description,
		TimeLimit:   e.TimeLimit,
		Code:        e.Code,
		Questions:   qs,
	}
}

// Answer is a student's response to one question. An empty AnswerText means unanswered.
type Answer struct {
	QuestionID int64  `json:"question_id"`
	AnswerText string `json:"answer_text"`
}

// Submission is one student's recorded set of answers to one exam. It is immutable once stored.
type Submission struct {
	ID          int64     `json:"id"`
	ExamID      int64     `json:"exam_id"`
	StudentName string    `json:"student_name"`
	SubmittedAt time.Time `json:"submitted_at"`
	Answers     []Answer  `json:"answers"`
}

// Answer returns the answer for questionID, if any.
func (s Submission) Answer(questionID int64) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// SubmissionInput is the student-facing submission payload.
type SubmissionInput struct {
	ExamCode    string   `json:"exam_code"`
	StudentName string   `json:"student_name"`
	Answers     []Answer `json:"answers"`
}
