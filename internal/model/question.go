package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// QuestionType discriminates the question variants.
type QuestionType string

const (
	QuestionMCQ   QuestionType = "MCQ"
	QuestionShort QuestionType = "SHORT"
	QuestionCode  QuestionType = "CODE"
)

// QuestionTypes lists the variants in display order.
var QuestionTypes = []QuestionType{QuestionMCQ, QuestionShort, QuestionCode}

// Language is the programming language of a CODE question.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
)

var supportedLanguages = []Language{LanguagePython, LanguageJavaScript}

// Option is one choice of a multiple-choice question.
type Option struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

// QuestionInput is the authoring payload for a question. It carries the union of
// all variant fields; ValidateQuestion keeps only those valid for the tag.
type QuestionInput struct {
	QuestionType  QuestionType `json:"question_type" yaml:"question_type"`
	Text          string       `json:"text" yaml:"text"`
	Options       []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	Language      Language     `json:"language,omitempty" yaml:"language,omitempty"`
	StarterCode   string       `json:"starter_code,omitempty" yaml:"starter_code,omitempty"`
	Image         string       `json:"image,omitempty" yaml:"image,omitempty"`
}

// Variant holds the fields that exist for exactly one question type.
type Variant interface {
	Type() QuestionType
	isVariant()
}

// MCQ is a multiple-choice question scored against CorrectAnswer.
type MCQ struct {
	Options       []Option
	CorrectAnswer string
}

// Short is a free-text question. It has no answer key.
type Short struct{}

// Code is a programming question. It has no automated correctness check.
type Code struct {
	Language    Language
	StarterCode string
}

func (MCQ) Type() QuestionType   { return QuestionMCQ }
func (Short) Type() QuestionType { return QuestionShort }
func (Code) Type() QuestionType  { return QuestionCode }

func (MCQ) isVariant()   {}
func (Short) isVariant() {}
func (Code) isVariant()  {}

// Question is a validated exam question. Values only come out of ValidateQuestion,
// so every Question in the system satisfies its variant's rules.
type Question struct {
	ID       int64
	ExamID   int64
	Position int

	text    string
	image   string
	variant Variant
}

// ValidateQuestion checks the per-variant rules and returns the validated question.
func ValidateQuestion(in QuestionInput) (Question, error) {
	qt := QuestionType(strings.ToUpper(strings.TrimSpace(string(in.QuestionType))))
	if !slices.Contains(QuestionTypes, qt) {
		return Question{}, invalid("question_type", ErrInvalidQuestionType, string(in.QuestionType))
	}
	if strings.TrimSpace(in.Text) == "" {
		return Question{}, invalid("text", ErrEmptyText, "")
	}

	q := Question{text: in.Text, image: in.Image}
	switch qt {
	case QuestionMCQ:
		v, err := validateMCQ(in.Options, in.CorrectAnswer)
		if err != nil {
			return Question{}, err
		}
		q.variant = v
	case QuestionShort:
		q.variant = Short{}
	case QuestionCode:
		lang := Language(strings.ToLower(strings.TrimSpace(string(in.Language))))
		if lang == "" {
			lang = LanguagePython
		}
		if !slices.Contains(supportedLanguages, lang) {
			return Question{}, invalid("language", ErrInvalidLanguage, string(in.Language))
		}
		q.variant = Code{Language: lang, StarterCode: in.StarterCode}
	}
	return q, nil
}

func validateMCQ(options []Option, correct string) (MCQ, error) {
	if len(options) < 2 {
		return MCQ{}, invalid("options", ErrInvalidOptions, fmt.Sprintf("need at least 2 options, got %d", len(options)))
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if !isOptionKey(o.Key) {
			return MCQ{}, invalid("options", ErrInvalidOptions, fmt.Sprintf("key %q is not a single uppercase letter", o.Key))
		}
		if seen[o.Key] {
			return MCQ{}, invalid("options", ErrInvalidOptions, fmt.Sprintf("duplicate key %q", o.Key))
		}
		seen[o.Key] = true
	}
	if !seen[correct] {
		return MCQ{}, invalid("correct_answer", ErrInvalidOptions, fmt.Sprintf("%q is not an option key", correct))
	}
	return MCQ{Options: slices.Clone(options), CorrectAnswer: correct}, nil
}

func isOptionKey(k string) bool {
	return len(k) == 1 && k[0] >= 'A' && k[0] <= 'Z'
}

// Text returns the question prompt.
func (q Question) Text() string { return q.text }

// Image returns the opaque handle of the attached image, or "".
func (q Question) Image() string { return q.image }

// Type returns the variant tag.
func (q Question) Type() QuestionType {
	if q.variant == nil {
		return ""
	}
	return q.variant.Type()
}

// Variant returns the variant payload.
func (q Question) Variant() Variant { return q.variant }

// MCQ returns the multiple-choice payload when q is an MCQ question.
func (q Question) MCQ() (MCQ, bool) {
	v, ok := q.variant.(MCQ)
	if !ok {
		return MCQ{}, false
	}
	v.Options = slices.Clone(v.Options)
	return v, true
}

// Code returns the programming payload when q is a CODE question.
func (q Question) Code() (Code, bool) {
	v, ok := q.variant.(Code)
	return v, ok
}

// Scorable reports whether the question has an automated correct/incorrect determination.
func (q Question) Scorable() bool { return q.Type() == QuestionMCQ }

// Input reads the question back into its authoring payload.
func (q Question) Input() QuestionInput {
	in := QuestionInput{QuestionType: q.Type(), Text: q.text, Image: q.image}
	switch v := q.variant.(type) {
	case MCQ:
		in.Options = slices.Clone(v.Options)
		in.CorrectAnswer = v.CorrectAnswer
	case Code:
		in.Language = v.Language
		in.StarterCode = v.StarterCode
	}
	return in
}

type questionJSON struct {
	ID     int64 `json:"id"`
	ExamID int64 `json:"exam_id"`
	QuestionInput
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(questionJSON{ID: q.ID, ExamID: q.ExamID, QuestionInput: q.Input()})
}

// UnmarshalJSON decodes and re-validates a question.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ValidateQuestion(raw.QuestionInput)
	if err != nil {
		return err
	}
	v.ID = raw.ID
	v.ExamID = raw.ExamID
	*q = v
	return nil
}

// StudentQuestion is a question as shown to students: the answer key is removed.
type StudentQuestion struct {
	ID           int64        `json:"id"`
	QuestionType QuestionType `json:"question_type"`
	Text         string       `json:"text"`
	Options      []Option     `json:"options,omitempty"`
	Language     Language     `json:"language,omitempty"`
	StarterCode  string       `json:"starter_code,omitempty"`
	Image        string       `json:"image,omitempty"`
}

// ForStudent strips the answer key.
func (q Question) ForStudent() StudentQuestion {
	in := q.Input()
	return StudentQuestion{
		ID:           q.ID,
		QuestionType: in.QuestionType,
		Text:         in.Text,
		Options:      in.Options,
		Language:     in.Language,
		StarterCode:  in.StarterCode,
		Image:        in.Image,
	}
}
