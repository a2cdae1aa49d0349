package models

import (
	"encoding/json"
	"fmt"
)

type QuestionType string

const (
	TypeSingleChoice   QuestionType = "singleChoice"
	TypeMultipleChoice QuestionType = "multipleChoice"
	TypeTrueFalse      QuestionType = "trueFalse"
)

// QuestionTypes lists every valid type in a stable order.
var QuestionTypes = []QuestionType{TypeSingleChoice, TypeMultipleChoice, TypeTrueFalse}

// typeLabels maps the localized spreadsheet labels to question types.
// Adding a type means adding one entry here plus its builder in the importer.
var typeLabels = map[string]QuestionType{
	"单选题": TypeSingleChoice,
	"多选题": TypeMultipleChoice,
	"判断题": TypeTrueFalse,
}

func TypeFromLabel(label string) (QuestionType, bool) {
	t, ok := typeLabels[label]
	return t, ok
}

func (t QuestionType) Valid() bool {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeTrueFalse:
		return true
	}
	return false
}

// Label returns the localized label for the type, or the raw type string
// when it has no label.
func (t QuestionType) Label() string {
	for label, qt := range typeLabels {
		if qt == t {
			return label
		}
	}
	return string(t)
}

// IDPrefix is the two-letter prefix used when synthesizing question IDs,
// e.g. "si" for singleChoice.
func (t QuestionType) IDPrefix() string {
	if len(t) < 2 {
		return string(t)
	}
	return string(t)[:2]
}

// Option is one answer choice within a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AnswerKey is the correctAnswer union: a single option id for
// singleChoice/trueFalse questions, a set of option ids for multipleChoice.
// On the wire it is a bare string in the single case and a string array in
// the multiple case, matching the import document format.
type AnswerKey struct {
	IDs      []string
	Multiple bool
}

func SingleAnswer(id string) AnswerKey {
	return AnswerKey{IDs: []string{id}}
}

func MultipleAnswer(ids []string) AnswerKey {
	return AnswerKey{IDs: ids, Multiple: true}
}

func (k AnswerKey) MarshalJSON() ([]byte, error) {
	if k.Multiple {
		return json.Marshal(k.IDs)
	}
	if len(k.IDs) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(k.IDs[0])
}

func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*k = SingleAnswer(single)
		return nil
	}
	var multiple []string
	if err := json.Unmarshal(data, &multiple); err != nil {
		return fmt.Errorf("correctAnswer must be a string or an array of strings")
	}
	*k = MultipleAnswer(multiple)
	return nil
}

// Defaults attached to imported questions when the source row carries no
// metadata.
const (
	DefaultExplanation = "暂无解释"
	DefaultDifficulty  = "medium"
	DefaultCategory    = "通用"
)

type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type,omitempty"`
	Question      string       `json:"question"`
	Options       []Option     `json:"options"`
	CorrectAnswer AnswerKey    `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
	Difficulty    string       `json:"difficulty"`
	Category      string       `json:"category"`
	Tags          []string     `json:"tags"`
}

// HasOption reports whether the question carries an option with the given id.
func (q *Question) HasOption(id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// ImportError describes one rejected row of an import. Question is a
// best-effort title for display; it is empty for structural failures where
// no title could be read.
type ImportError struct {
	Row      int    `json:"row"`
	Error    string `json:"error"`
	Question string `json:"question,omitempty"`
}

// ── Import Document (JSON wire format) ──────────────────

// QuestionsDocument is the category-grouped JSON import format. It is a
// wire shape only; the store persists one row per question.
type QuestionsDocument struct {
	Version     string              `json:"version"`
	LastUpdated string              `json:"lastUpdated"`
	Categories  map[string]Category `json:"categories"`
}

type Category struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// ── Response Types ──────────────────────────────────────

type ImportSummary struct {
	SuccessCount int           `json:"successCount"`
	ErrorCount   int           `json:"errorCount"`
	Errors       []ImportError `json:"errors"`
}

type UploadResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    *ImportSummary `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
