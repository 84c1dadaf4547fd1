package store

import (
	"fmt"

	"github.com/pavelanni/lesspaper/internal/model"
)

// LoadResults returns an exam together with all its submissions, ready for
// scoring, reporting, and export.
func (s *Store) LoadResults(examID int64) (model.ExamResults, error) {
	exam, err := s.GetExam(examID)
	if err != nil {
		return model.ExamResults{}, err
	}
	subs, err := s.ListSubmissions(examID)
	if err != nil {
		return model.ExamResults{}, fmt.Errorf("load submissions for exam %d: %w", examID, err)
	}
	return model.ExamResults{Exam: exam, Submissions: subs}, nil
}
