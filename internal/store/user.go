package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/pavelanni/lesspaper/internal/model"
)

var instructorColumns = []string{"id", "username", "display_name", "password_hash", "active", "created_at"}

// CreateInstructor inserts a new instructor. A taken username yields model.ErrUsernameTaken.
func (s *Store) CreateInstructor(u model.Instructor) (int64, error) {
	username := strings.TrimSpace(u.Username)
	var id int64
	err := s.sb.Insert("instructors").
		Columns(instructorColumns[1:]...).
		Values(username, u.DisplayName, u.PasswordHash, u.Active, s.now().UTC()).
		Suffix("RETURNING id").
		QueryRow().Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("create instructor %q: %w", username, model.ErrUsernameTaken)
	}
	if err != nil {
		slog.Error("failed to create instructor", "username", username, "error", err)
		return 0, fmt.Errorf("create instructor: %w", err)
	}
	slog.Info("created instructor", "id", id, "username", username)
	return id, nil
}

// GetInstructorByUsername returns an instructor by username, or nil if none exists.
func (s *Store) GetInstructorByUsername(username string) (*model.Instructor, error) {
	return s.getInstructor(sq.Eq{"username": strings.TrimSpace(username)})
}

// GetInstructorByID returns an instructor by ID, or nil if none exists.
func (s *Store) GetInstructorByID(id int64) (*model.Instructor, error) {
	return s.getInstructor(sq.Eq{"id": id})
}

func (s *Store) getInstructor(pred sq.Eq) (*model.Instructor, error) {
	u, err := scanInstructor(s.sb.Select(instructorColumns...).From("instructors").Where(pred).QueryRow())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListInstructors returns all instructors.
func (s *Store) ListInstructors() ([]model.Instructor, error) {
	rows, err := s.sb.Select(instructorColumns...).From("instructors").OrderBy("id").Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.Instructor
	for rows.Next() {
		u, err := scanInstructor(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetInstructorActive enables or disables an instructor account.
func (s *Store) SetInstructorActive(id int64, active bool) error {
	res, err := s.sb.Update("instructors").Set("active", active).Where(sq.Eq{"id": id}).Exec()
	if err != nil {
		return fmt.Errorf("update instructor %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("instructor %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// InstructorCount returns the total number of instructors.
func (s *Store) InstructorCount() (int, error) {
	var count int
	err := s.sb.Select("COUNT(*)").From("instructors").QueryRow().Scan(&count)
	return count, err
}

func scanInstructor(row sq.RowScanner) (model.Instructor, error) {
	var u model.Instructor
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Active, &u.CreatedAt)
	return u, err
}
