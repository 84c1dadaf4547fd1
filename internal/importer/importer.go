// Package importer creates exams from definition files. A definition holds the
// exam metadata and its questions in YAML or JSON.
package importer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/lesspaper/internal/model"
	"github.com/pavelanni/lesspaper/internal/store"
)

// Definition is the file format of an exam definition.
type Definition struct {
	model.ExamInput `yaml:",inline"`
	Questions       []model.QuestionInput `json:"questions" yaml:"questions"`
}

// Result describes what happened to one file.
type Result struct {
	Path      string
	ExamID    int64
	Code      string
	Questions int
	Skipped   bool
}

// Importer writes definitions through the store.
type Importer struct {
	store *store.Store
}

func New(s *store.Store) *Importer {
	return &Importer{store: s}
}

// Parse decodes a definition. Files ending in .json are read as JSON; anything
// else is read as YAML. Unknown fields are rejected.
func Parse(data []byte, name string) (Definition, error) {
	var def Definition
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return def, nil
}

// Validate checks the exam metadata and every question without writing anything.
func (d Definition) Validate() error {
	if err := d.ExamInput.Validate(); err != nil {
		return err
	}
	for i, q := range d.Questions {
		if _, err := model.ValidateQuestion(q); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// ImportFile creates an exam owned by instructorID from the file at path. A file
// whose content the same instructor imported before, and whose exam still
// exists, is skipped.
func (im *Importer) ImportFile(instructorID int64, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	res := Result{Path: path}

	hash := sha256sum(data)
	examID, ok, err := im.store.ImportedExam(instructorID, hash)
	if err != nil {
		return Result{}, fmt.Errorf("check import status for %s: %w", path, err)
	}
	if ok {
		exam, err := im.store.GetExam(examID)
		switch {
		case err == nil:
			slog.Info("exam file unchanged, skipping", "path", path, "exam_id", examID)
			res.ExamID, res.Code, res.Questions, res.Skipped = exam.ID, exam.Code, len(exam.Questions), true
			return res, nil
		case errors.Is(err, model.ErrNotFound):
			slog.Info("previously imported exam was deleted, importing again", "path", path, "exam_id", examID)
		default:
			return Result{}, err
		}
	}

	def, err := Parse(data, path)
	if err != nil {
		return Result{}, err
	}
	if err := def.Validate(); err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}

	exam, err := im.store.CreateExam(instructorID, def.ExamInput)
	if err != nil {
		return Result{}, fmt.Errorf("create exam from %s: %w", path, err)
	}
	for i, q := range def.Questions {
		// Image handles are only minted by an upload.
		q.Image = ""
		if _, err := im.store.InsertQuestion(exam.ID, q); err != nil {
			if _, derr := im.store.DeleteExam(exam.ID); derr != nil {
				slog.Error("failed to remove partially imported exam", "exam_id", exam.ID, "error", derr)
			}
			return Result{}, fmt.Errorf("add question %d from %s: %w", i+1, path, err)
		}
	}
	if err := im.store.RecordImport(instructorID, hash, exam.ID); err != nil {
		return Result{}, fmt.Errorf("record import for %s: %w", path, err)
	}

	slog.Info("imported exam", "path", path, "exam_id", exam.ID, "code", exam.Code, "questions", len(def.Questions))
	res.ExamID, res.Code, res.Questions = exam.ID, exam.Code, len(def.Questions)
	return res, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
