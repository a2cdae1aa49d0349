package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/spencereven/Quiz/internal/models"
)

// Store persists questions one row per question. Structured fields
// (options, correctAnswer, tags) are serialized to JSON text columns and
// decoded on read.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const questionColumns = `id, type, question, options, correct_answer, explanation, difficulty, category, tags`

// GetByType returns every question of the given type, ordered by id. An
// unknown type or an empty bank yields an empty slice, not an error.
func (s *Store) GetByType(ctx context.Context, qt models.QuestionType) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE type = $1 ORDER BY id`, qt)
	if err != nil {
		return nil, fmt.Errorf("get questions by type: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetRandom uniformly selects one question of the given type. A nil
// question with a nil error means none exist.
func (s *Store) GetRandom(ctx context.Context, qt models.QuestionType) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE type = $1 ORDER BY RANDOM() LIMIT 1`, qt)

	q, err := scanQuestion(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get random question: %w", err)
	}
	return q, nil
}

// UpsertBatch inserts or replaces the given questions keyed by id as a
// single transaction: if any write fails, nothing is persisted. Within a
// batch the last write for an id wins.
func (s *Store) UpsertBatch(ctx context.Context, qs []models.Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range qs {
		options, err := encodeJSON(q.Options)
		if err != nil {
			return 0, fmt.Errorf("encode options for %s: %w", q.ID, err)
		}
		answer, err := encodeJSON(q.CorrectAnswer)
		if err != nil {
			return 0, fmt.Errorf("encode answer for %s: %w", q.ID, err)
		}
		tags, err := encodeJSON(q.Tags)
		if err != nil {
			return 0, fmt.Errorf("encode tags for %s: %w", q.ID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions
			 (id, type, question, options, correct_answer, explanation, difficulty, category, tags, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			 ON CONFLICT (id) DO UPDATE SET
			   type = EXCLUDED.type,
			   question = EXCLUDED.question,
			   options = EXCLUDED.options,
			   correct_answer = EXCLUDED.correct_answer,
			   explanation = EXCLUDED.explanation,
			   difficulty = EXCLUDED.difficulty,
			   category = EXCLUDED.category,
			   tags = EXCLUDED.tags,
			   updated_at = NOW()`,
			q.ID, q.Type, q.Question, options, answer,
			q.Explanation, q.Difficulty, q.Category, tags,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(qs), nil
}

// Clear deletes every question unconditionally.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var options, answer string
	var explanation, difficulty, category, tags sql.NullString

	err := row.Scan(&q.ID, &q.Type, &q.Question, &options, &answer,
		&explanation, &difficulty, &category, &tags)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan question: %w", err)
	}

	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return nil, fmt.Errorf("decode options for %s: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(answer), &q.CorrectAnswer); err != nil {
		return nil, fmt.Errorf("decode answer for %s: %w", q.ID, err)
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &q.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", q.ID, err)
		}
	}
	q.Explanation = explanation.String
	q.Difficulty = difficulty.String
	q.Category = category.String

	return &q, nil
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
