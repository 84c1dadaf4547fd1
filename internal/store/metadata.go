package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
)

const importKeyPrefix = "import:"

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.sb.Insert("metadata").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		Exec()
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.sb.Select("value").From("metadata").Where(sq.Eq{"key": key}).QueryRow().Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func importKey(instructorID int64, hash string) string {
	return importKeyPrefix + strconv.FormatInt(instructorID, 10) + ":" + hash
}

// ImportedExam returns the exam the instructor created from a file with the
// given content hash. ok is false when that instructor has not imported it before.
func (s *Store) ImportedExam(instructorID int64, hash string) (examID int64, ok bool, err error) {
	v, err := s.GetMetadata(importKey(instructorID, hash))
	if err != nil || v == "" {
		return 0, false, err
	}
	examID, err = strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse imported exam id %q: %w", v, err)
	}
	return examID, true, nil
}

// RecordImport remembers that the instructor's file with the given content hash became examID.
func (s *Store) RecordImport(instructorID int64, hash string, examID int64) error {
	return s.SetMetadata(importKey(instructorID, hash), strconv.FormatInt(examID, 10))
}
