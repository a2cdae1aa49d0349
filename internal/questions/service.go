package questions

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spencereven/Quiz/internal/importer"
	"github.com/spencereven/Quiz/internal/models"
)

// ErrUnsupportedFormat is returned for files whose extension matches no
// known import format. No partial processing happens in that case.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DecodeError wraps a failure to decode an uploaded file into rows or a
// questions document. It carries the format name for the client message.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("process %s file: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// questionStore is the persistence surface the service depends on. The
// concrete Store satisfies it; tests substitute their own.
type questionStore interface {
	GetByType(ctx context.Context, qt models.QuestionType) ([]models.Question, error)
	GetRandom(ctx context.Context, qt models.QuestionType) (*models.Question, error)
	UpsertBatch(ctx context.Context, qs []models.Question) (int, error)
	Clear(ctx context.Context) error
}

type Service struct {
	store questionStore
}

func NewService(store questionStore) *Service {
	return &Service{store: store}
}

// GetQuestion returns one random question of the requested type, or nil
// when none exist.
func (s *Service) GetQuestion(ctx context.Context, qt models.QuestionType) (*models.Question, error) {
	return s.store.GetRandom(ctx, qt)
}

// GetQuestionsByType returns every question of the requested type.
func (s *Service) GetQuestionsByType(ctx context.Context, qt models.QuestionType) ([]models.Question, error) {
	return s.store.GetByType(ctx, qt)
}

// ImportFile dispatches on the file extension, normalizes the content into
// questions and commits the accepted ones in one batch. Rejected rows are
// collected, never fatal; they are reported in the summary alongside the
// accepted count. When nothing is accepted the store is left untouched.
func (s *Service) ImportFile(ctx context.Context, filename string, data []byte) (*models.ImportSummary, error) {
	format, ok := importer.DetectFormat(filename)
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	var (
		questions  []models.Question
		importErrs []models.ImportError
	)

	switch format {
	case importer.FormatJSON:
		doc, err := importer.DecodeJSON(data)
		if err != nil {
			return nil, &DecodeError{Format: format.String(), Err: err}
		}
		questions, importErrs = importer.FlattenDocument(doc)
	case importer.FormatCSV:
		rows, err := importer.DecodeCSV(data)
		if err != nil {
			return nil, &DecodeError{Format: format.String(), Err: err}
		}
		questions, importErrs = importer.Normalize(rows)
	case importer.FormatExcel:
		rows, err := importer.DecodeExcel(data)
		if err != nil {
			return nil, &DecodeError{Format: format.String(), Err: err}
		}
		questions, importErrs = importer.Normalize(rows)
	default:
		return nil, ErrUnsupportedFormat
	}

	if len(questions) > 0 {
		if _, err := s.store.UpsertBatch(ctx, questions); err != nil {
			return nil, fmt.Errorf("persist imported questions: %w", err)
		}
	}

	if len(importErrs) > 0 {
		log.Printf("[import] 导入失败的题目详情:")
		for _, e := range importErrs {
			title := e.Question
			if title == "" {
				title = "未知题目"
			}
			log.Printf("[import] 第%d行: %s - %s", e.Row, title, e.Error)
		}
	}

	return &models.ImportSummary{
		SuccessCount: len(questions),
		ErrorCount:   len(importErrs),
		Errors:       importErrs,
	}, nil
}

// Clear empties the question bank.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
