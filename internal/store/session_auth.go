package store

import (
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pavelanni/lesspaper/internal/model"
)

// CreateAuthSession records an issued token id for an instructor.
func (s *Store) CreateAuthSession(id string, instructorID int64, expiresAt time.Time) error {
	_, err := s.sb.Insert("auth_sessions").
		Columns("id", "instructor_id", "created_at", "expires_at").
		Values(id, instructorID, s.now().UTC(), expiresAt.UTC()).
		Exec()
	return err
}

// GetAuthSession returns the auth session for the given token id, or nil if not found/expired.
func (s *Store) GetAuthSession(id string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.sb.Select("id", "instructor_id", "created_at", "expires_at").From("auth_sessions").
		Where(sq.Eq{"id": id}).QueryRow().
		Scan(&sess.ID, &sess.InstructorID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(id)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession revokes a token id.
func (s *Store) DeleteAuthSession(id string) error {
	_, err := s.sb.Delete("auth_sessions").Where(sq.Eq{"id": id}).Exec()
	return err
}

// CleanupExpiredSessions removes all expired auth sessions and reports how many went.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	res, err := s.sb.Delete("auth_sessions").Where(sq.Lt{"expires_at": s.now().UTC()}).Exec()
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
