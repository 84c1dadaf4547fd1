package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/pavelanni/lesspaper/internal/model"
)

var examColumns = []string{"id", "instructor_id", "title", "description", "time_limit", "code", "created_at"}

var questionColumns = []string{
	"id", "exam_id", "position", "question_type", "text",
	"options_json", "correct_answer", "language", "starter_code", "image",
}

// DeletedExam describes what an exam deletion removed.
type DeletedExam struct {
	Exam        model.Exam
	Submissions int
	// Images are the blob keys the exam's questions referenced.
	Images []string
}

// CreateExam validates the exam metadata and stores a new exam under a freshly
// allocated access code. A code collision is retried with a new code up to
// codeAttempts times before failing with model.ErrCodeGenerationExhausted.
func (s *Store) CreateExam(instructorID int64, in model.ExamInput) (model.Exam, error) {
	if err := in.Validate(); err != nil {
		return model.Exam{}, err
	}
	for attempt := 1; attempt <= codeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return model.Exam{}, fmt.Errorf("generate access code: %w", err)
		}
		exam, err := s.insertExam(instructorID, in, code)
		if err == nil {
			slog.Info("created exam", "exam_id", exam.ID, "code", exam.Code, "instructor_id", instructorID)
			return exam, nil
		}
		if !errors.Is(err, model.ErrConcurrencyConflict) {
			return model.Exam{}, err
		}
		slog.Debug("access code taken", "code", code, "attempt", attempt)
	}
	slog.Error("access code generation exhausted", "attempts", codeAttempts, "alert", true)
	return model.Exam{}, fmt.Errorf("create exam after %d attempts: %w", codeAttempts, model.ErrCodeGenerationExhausted)
}

// insertExam is the compare-and-insert step: the UNIQUE constraint on code
// rejects a code that is already allocated.
func (s *Store) insertExam(instructorID int64, in model.ExamInput, code string) (model.Exam, error) {
	exam := model.Exam{
		InstructorID: instructorID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		TimeLimit:    in.TimeLimit,
		Code:         code,
		CreatedAt:    s.now().UTC(),
		Questions:    []model.Question{},
	}
	err := s.sb.Insert("exams").
		Columns("instructor_id", "title", "description", "time_limit", "code", "created_at").
		Values(exam.InstructorID, exam.Title, exam.Description, exam.TimeLimit, exam.Code, exam.CreatedAt).
		Suffix("RETURNING id").
		QueryRow().Scan(&exam.ID)
	if isUniqueViolation(err) {
		return model.Exam{}, fmt.Errorf("insert exam with code %s: %w", code, model.ErrConcurrencyConflict)
	}
	if err != nil {
		return model.Exam{}, fmt.Errorf("insert exam: %w", err)
	}
	return exam, nil
}

// AddQuestion validates in and appends it to the exam. The returned exam
// carries the full question list in authoring order.
func (s *Store) AddQuestion(examID int64, in model.QuestionInput) (model.Exam, error) {
	if _, err := s.InsertQuestion(examID, in); err != nil {
		return model.Exam{}, err
	}
	return s.GetExam(examID)
}

// InsertQuestion validates in, appends it to the exam and returns the stored
// question with its id and position.
func (s *Store) InsertQuestion(examID int64, in model.QuestionInput) (model.Question, error) {
	q, err := model.ValidateQuestion(in)
	if err != nil {
		return model.Question{}, err
	}
	stored := q.Input()
	optionsJSON := ""
	if len(stored.Options) > 0 {
		b, err := json.Marshal(stored.Options)
		if err != nil {
			return model.Question{}, fmt.Errorf("marshal options: %w", err)
		}
		optionsJSON = string(b)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return model.Question{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = s.sb.Select("id").From("exams").Where(sq.Eq{"id": examID}).RunWith(tx).QueryRow().Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Question{}, model.ErrExamNotFound
	}
	if err != nil {
		return model.Question{}, fmt.Errorf("lock exam %d: %w", examID, err)
	}

	var last int
	err = s.sb.Select("COALESCE(MAX(position), 0)").From("questions").
		Where(sq.Eq{"exam_id": examID}).RunWith(tx).QueryRow().Scan(&last)
	if err != nil {
		return model.Question{}, fmt.Errorf("next position: %w", err)
	}

	var questionID int64
	err = s.sb.Insert("questions").
		Columns(questionColumns[1:]...).
		Values(examID, last+1, string(stored.QuestionType), stored.Text,
			optionsJSON, stored.CorrectAnswer, string(stored.Language), stored.StarterCode, stored.Image).
		Suffix("RETURNING id").
		RunWith(tx).QueryRow().Scan(&questionID)
	if err != nil {
		return model.Question{}, fmt.Errorf("insert question: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Question{}, fmt.Errorf("commit: %w", err)
	}
	slog.Info("added question", "exam_id", examID, "question_id", questionID, "type", stored.QuestionType)
	q.ID = questionID
	q.ExamID = examID
	q.Position = last + 1
	return q, nil
}

// GetExam returns the exam with its questions, or model.ErrExamNotFound.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	return s.getExamWhere(sq.Eq{"id": id})
}

// ResolveByCode returns the exam a student access code points at, or
// model.ErrUnknownAccessCode. Codes are matched case-insensitively after
// trimming surrounding space.
func (s *Store) ResolveByCode(code string) (model.Exam, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return model.Exam{}, model.ErrUnknownAccessCode
	}
	exam, err := s.getExamWhere(sq.Eq{"code": code})
	if errors.Is(err, model.ErrExamNotFound) {
		return model.Exam{}, model.ErrUnknownAccessCode
	}
	return exam, err
}

func (s *Store) getExamWhere(pred sq.Eq) (model.Exam, error) {
	exam, err := scanExam(s.sb.Select(examColumns...).From("exams").Where(pred).QueryRow())
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, model.ErrExamNotFound
	}
	if err != nil {
		return model.Exam{}, fmt.Errorf("get exam: %w", err)
	}
	exam.Questions, err = s.listQuestions(exam.ID)
	if err != nil {
		return model.Exam{}, err
	}
	return exam, nil
}

// ListExams returns the instructor's exams, oldest first, with their questions.
func (s *Store) ListExams(instructorID int64) ([]model.Exam, error) {
	rows, err := s.sb.Select(examColumns...).From("exams").
		Where(sq.Eq{"instructor_id": instructorID}).
		OrderBy("id").Query()
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range exams {
		if exams[i].Questions, err = s.listQuestions(exams[i].ID); err != nil {
			return nil, err
		}
	}
	return exams, nil
}

// DeleteExam removes the exam, its questions, and every submission and answer
// recorded against it in one transaction.
func (s *Store) DeleteExam(id int64) (DeletedExam, error) {
	exam, err := s.GetExam(id)
	if err != nil {
		return DeletedExam{}, err
	}
	out := DeletedExam{Exam: exam}
	for _, q := range exam.Questions {
		if img := q.Image(); img != "" {
			out.Images = append(out.Images, img)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return DeletedExam{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = s.sb.Select("COUNT(*)").From("submissions").Where(sq.Eq{"exam_id": id}).
		RunWith(tx).QueryRow().Scan(&out.Submissions)
	if err != nil {
		return DeletedExam{}, fmt.Errorf("count submissions: %w", err)
	}

	deletes := []sq.DeleteBuilder{
		s.sb.Delete("answers").Where(sq.Expr("submission_id IN (SELECT id FROM submissions WHERE exam_id = ?)", id)),
		s.sb.Delete("submissions").Where(sq.Eq{"exam_id": id}),
		s.sb.Delete("questions").Where(sq.Eq{"exam_id": id}),
		s.sb.Delete("exams").Where(sq.Eq{"id": id}),
	}
	for _, d := range deletes {
		if _, err := d.RunWith(tx).Exec(); err != nil {
			return DeletedExam{}, fmt.Errorf("delete exam %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return DeletedExam{}, fmt.Errorf("commit: %w", err)
	}
	slog.Info("deleted exam", "exam_id", id, "code", exam.Code, "submissions", out.Submissions)
	return out, nil
}

// ExamCount returns the total number of exams.
func (s *Store) ExamCount() (int, error) {
	var count int
	err := s.sb.Select("COUNT(*)").From("exams").QueryRow().Scan(&count)
	return count, err
}

func (s *Store) listQuestions(examID int64) ([]model.Question, error) {
	rows, err := s.sb.Select(questionColumns...).From("questions").
		Where(sq.Eq{"exam_id": examID}).
		OrderBy("position", "id").Query()
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanExam(row sq.RowScanner) (model.Exam, error) {
	var e model.Exam
	err := row.Scan(&e.ID, &e.InstructorID, &e.Title, &e.Description, &e.TimeLimit, &e.Code, &e.CreatedAt)
	e.CreatedAt = e.CreatedAt.UTC()
	return e, err
}

func scanQuestion(row sq.RowScanner) (model.Question, error) {
	var (
		id, examID  int64
		position    int
		optionsJSON string
		qtype, lang string
		in          model.QuestionInput
	)
	err := row.Scan(&id, &examID, &position, &qtype, &in.Text,
		&optionsJSON, &in.CorrectAnswer, &lang, &in.StarterCode, &in.Image)
	if err != nil {
		return model.Question{}, fmt.Errorf("scan question: %w", err)
	}
	in.QuestionType = model.QuestionType(qtype)
	in.Language = model.Language(lang)
	if optionsJSON != "" {
		if err := json.Unmarshal([]byte(optionsJSON), &in.Options); err != nil {
			return model.Question{}, fmt.Errorf("question %d options: %w", id, err)
		}
	}
	q, err := model.ValidateQuestion(in)
	if err != nil {
		return model.Question{}, fmt.Errorf("question %d: %w", id, err)
	}
	q.ID = id
	q.ExamID = examID
	q.Position = position
	return q, nil
}
