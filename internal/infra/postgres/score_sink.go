package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

// ScoreSink keeps standings in Postgres for deployments without the remote backend.
// It has no currency economy, so reward fields are always zero.
type ScoreSink struct {
	pool *pgxpool.Pool
}

var _ app.ScoreSink = (*ScoreSink)(nil)

func NewScoreSink(pool *pgxpool.Pool) *ScoreSink {
	return &ScoreSink{pool: pool}
}

// Submit keeps the larger high score and replaces the streak.
func (s *ScoreSink) Submit(ctx context.Context, player domain.Player, sub domain.Submission) (domain.ScoreSubmissionResult, error) {
	var high, prev int
	err := s.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT high_score FROM standings
			WHERE player_id = $1 AND mode = $2 AND kind = $3
		)
		INSERT INTO standings (player_id, mode, kind, high_score, streak, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (player_id, mode, kind) DO UPDATE
		SET high_score = GREATEST(standings.high_score, EXCLUDED.high_score),
		    streak = EXCLUDED.streak,
		    updated_at = now()
		RETURNING high_score, COALESCE((SELECT high_score FROM prev), 0)`,
		player.ID, string(sub.Mode), string(sub.Kind), sub.AccumulatedStreak, sub.NextStreak,
	).Scan(&high, &prev)
	if err != nil {
		return domain.ScoreSubmissionResult{}, fmt.Errorf("%w: save standing: %v", domain.ErrTransport, err)
	}
	return domain.ScoreSubmissionResult{
		HighScore:   high,
		IsNewRecord: sub.AccumulatedStreak > prev,
		NextStreak:  sub.NextStreak,
	}, nil
}

func (s *ScoreSink) Standing(ctx context.Context, player domain.Player, mode domain.Mode, kind domain.MediaKind) (domain.Standing, error) {
	var standing domain.Standing
	err := s.pool.QueryRow(ctx, `
		SELECT high_score, streak FROM standings
		WHERE player_id = $1 AND mode = $2 AND kind = $3`,
		player.ID, string(mode), string(kind),
	).Scan(&standing.HighScore, &standing.Streak)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Standing{}, nil
	}
	if err != nil {
		return domain.Standing{}, fmt.Errorf("%w: load standing: %v", domain.ErrTransport, err)
	}
	return standing, nil
}
