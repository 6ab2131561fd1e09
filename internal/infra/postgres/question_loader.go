package postgres

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"maipocket-quiz/internal/domain"
	"maipocket-quiz/internal/infra/memory"
)

// QuestionLoader loads the candidate pool from the standalone question bank.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

var _ memory.PoolLoader = (*QuestionLoader)(nil)

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadPool returns every question of kind matching filter. Tags are stored as
// {"level": ["14", "14+"], ...}; CategoryAll matches everything.
func (l *QuestionLoader) LoadPool(ctx context.Context, kind domain.MediaKind, filter domain.Filter) ([]domain.Question, error) {
	filter = filter.Normalize()
	rows, err := l.pool.Query(ctx, `
		SELECT id, media_url, choices, correct_answer
		FROM questions
		WHERE kind = $1
		  AND ($2::text = 'all' OR COALESCE(tags -> $2::text, '[]'::jsonb) ? $3::text)
		ORDER BY id`,
		string(kind), string(filter.Category), filter.Value,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", domain.ErrContentUnavailable, err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			choices []byte
		)
		if err := rows.Scan(&q.ID, &q.MediaURL, &choices, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("%w: scan question: %v", domain.ErrContentUnavailable, err)
		}
		if err := json.Unmarshal(choices, &q.Choices); err != nil {
			return nil, fmt.Errorf("unmarshal choices for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read questions: %v", domain.ErrContentUnavailable, err)
	}
	return out, nil
}

// Import upserts entries into the question bank in one batch.
func (l *QuestionLoader) Import(ctx context.Context, entries []memory.PoolEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		choices, err := json.Marshal(e.Question.Choices)
		if err != nil {
			return fmt.Errorf("marshal choices for %s: %w", e.Question.ID, err)
		}
		tags := e.Tags
		if tags == nil {
			tags = map[domain.Category][]string{}
		}
		rawTags, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", e.Question.ID, err)
		}
		batch.Queue(`
			INSERT INTO questions (id, kind, media_url, choices, correct_answer, tags)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET kind = EXCLUDED.kind,
			    media_url = EXCLUDED.media_url,
			    choices = EXCLUDED.choices,
			    correct_answer = EXCLUDED.correct_answer,
			    tags = EXCLUDED.tags`,
			e.Question.ID, string(e.Kind), e.Question.MediaURL, string(choices), e.Question.CorrectAnswer, string(rawTags),
		)
	}

	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("import questions: %w", err)
		}
	}
	return nil
}
