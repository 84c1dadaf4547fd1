package store

import (
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/pavelanni/lesspaper/internal/model"
)

// RecordSubmission resolves the exam by its access code, validates the payload
// against it and stores the submission with all its answers atomically. An
// answer to a question outside the exam rejects the whole submission.
func (s *Store) RecordSubmission(in model.SubmissionInput) (model.Submission, error) {
	exam, err := s.ResolveByCode(in.ExamCode)
	if err != nil {
		return model.Submission{}, err
	}
	sub, err := model.NewSubmission(exam, in)
	if err != nil {
		return model.Submission{}, err
	}
	sub.SubmittedAt = s.now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return model.Submission{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = s.sb.Insert("submissions").
		Columns("exam_id", "student_name", "submitted_at").
		Values(sub.ExamID, sub.StudentName, sub.SubmittedAt).
		Suffix("RETURNING id").
		RunWith(tx).QueryRow().Scan(&sub.ID)
	if err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	if len(sub.Answers) > 0 {
		ins := s.sb.Insert("answers").Columns("submission_id", "question_id", "answer_text")
		for _, a := range sub.Answers {
			ins = ins.Values(sub.ID, a.QuestionID, a.AnswerText)
		}
		if _, err := ins.RunWith(tx).Exec(); err != nil {
			return model.Submission{}, fmt.Errorf("insert answers: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Submission{}, fmt.Errorf("commit: %w", err)
	}
	slog.Info("recorded submission", "submission_id", sub.ID, "exam_id", sub.ExamID, "answers", len(sub.Answers))
	return sub, nil
}

// ListSubmissions returns the exam's submissions ordered by (submitted_at, id),
// each with its answers in exam question order.
func (s *Store) ListSubmissions(examID int64) ([]model.Submission, error) {
	rows, err := s.sb.Select("id", "exam_id", "student_name", "submitted_at").From("submissions").
		Where(sq.Eq{"exam_id": examID}).
		OrderBy("submitted_at", "id").Query()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	subs := []model.Submission{}
	index := make(map[int64]int)
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.SubmittedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.SubmittedAt = sub.SubmittedAt.UTC()
		sub.Answers = []model.Answer{}
		index[sub.ID] = len(subs)
		subs = append(subs, sub)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.sb.Select("a.submission_id", "a.question_id", "a.answer_text").
		From("answers a").
		Join("submissions s ON s.id = a.submission_id").
		Join("questions q ON q.id = a.question_id").
		Where(sq.Eq{"s.exam_id": examID}).
		OrderBy("a.submission_id", "q.position", "q.id").Query()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subID int64
		var a model.Answer
		if err := rows.Scan(&subID, &a.QuestionID, &a.AnswerText); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if i, ok := index[subID]; ok {
			subs[i].Answers = append(subs[i].Answers, a)
		}
	}
	return subs, rows.Err()
}

// SubmissionCount returns the number of submissions recorded for an exam.
func (s *Store) SubmissionCount(examID int64) (int, error) {
	var count int
	err := s.sb.Select("COUNT(*)").From("submissions").Where(sq.Eq{"exam_id": examID}).QueryRow().Scan(&count)
	return count, err
}
