// Package grading scores submissions against an exam's answer key and reduces
// submission sets into the statistics shown to instructors.
//
// Everything here is a pure function of its arguments.
package grading

import "github.com/pavelanni/lesspaper/internal/model"

// Status is the outcome of scoring one answer.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusUngraded  Status = "ungraded"
)

// Verdict classifies a whole submission.
type Verdict string

const (
	VerdictPass     Verdict = "pass"
	VerdictFail     Verdict = "fail"
	VerdictUngraded Verdict = "ungraded"
)

// DefaultPassThreshold is the share of correct scorable answers needed to pass.
const DefaultPassThreshold = 0.5

// QuestionResult is the scoring outcome for one question of one submission.
type QuestionResult struct {
	QuestionID int64              `json:"question_id"`
	Type       model.QuestionType `json:"question_type"`
	Answered   bool               `json:"answered"`
	Status     Status             `json:"status"`
}

// Summary counts correct answers among the scorable questions.
type Summary struct {
	Correct  int `json:"correct"`
	Scorable int `json:"scorable"`
}

// ScoreAnswer scores a single answer. MCQ answers are compared case-sensitively
// against the option key; an unanswered MCQ is incorrect. SHORT and CODE answers
// are always ungraded.
func ScoreAnswer(q model.Question, a model.Answer) Status {
	mcq, ok := q.MCQ()
	if !ok {
		return StatusUngraded
	}
	if a.AnswerText == mcq.CorrectAnswer {
		return StatusCorrect
	}
	return StatusIncorrect
}

// ScoreSubmission scores every question of the exam in question order. It always
// returns exactly len(exam.Questions) results; a missing answer counts as unanswered.
func ScoreSubmission(exam model.Exam, sub model.Submission) []QuestionResult {
	results := make([]QuestionResult, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		a, _ := sub.Answer(q.ID)
		results = append(results, QuestionResult{
			QuestionID: q.ID,
			Type:       q.Type(),
			Answered:   a.AnswerText != "",
			Status:     ScoreAnswer(q, a),
		})
	}
	return results
}

// SummarizeScore counts MCQ results as scorable and the correct ones among them.
func SummarizeScore(results []QuestionResult) Summary {
	var s Summary
	for _, r := range results {
		if r.Type != model.QuestionMCQ {
			continue
		}
		s.Scorable++
		if r.Status == StatusCorrect {
			s.Correct++
		}
	}
	return s
}

// Verdict classifies the summary. With nothing scorable the verdict is ungraded.
func (s Summary) Verdict(threshold float64) Verdict {
	if s.Scorable == 0 {
		return VerdictUngraded
	}
	if float64(s.Correct)/float64(s.Scorable) >= threshold {
		return VerdictPass
	}
	return VerdictFail
}

// StudentPassFail scores the submission and classifies it against threshold.
func StudentPassFail(exam model.Exam, sub model.Submission, threshold float64) Verdict {
	return SummarizeScore(ScoreSubmission(exam, sub)).Verdict(threshold)
}
