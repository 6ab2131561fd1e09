package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

// StandingStore keeps standings in an on-disk SQLite file, the way the app keeps
// its last known high scores between launches.
type StandingStore struct {
	db *sql.DB
}

func NewStandingStore(filePath string) (*StandingStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create standing store dir")
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, errors.Wrap(err, "open standing store")
	}
	st := &StandingStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *StandingStore) Close() error {
	return s.db.Close()
}

func (s *StandingStore) Load(ctx context.Context, key app.StandingKey) (domain.Standing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT high_score, streak
		FROM standings
		WHERE player_id = ? AND mode = ? AND kind = ?`,
		key.PlayerID,
		string(key.Mode),
		string(key.Kind),
	)
	var standing domain.Standing
	err := row.Scan(&standing.HighScore, &standing.Streak)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Standing{}, nil
	}
	if err != nil {
		return domain.Standing{}, errors.Wrapf(err, "load standing %s", key)
	}
	return standing, nil
}

func (s *StandingStore) Save(ctx context.Context, key app.StandingKey, standing domain.Standing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO standings
		(player_id, mode, kind, high_score, streak, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		key.PlayerID,
		string(key.Mode),
		string(key.Kind),
		standing.HighScore,
		standing.Streak,
	)
	return errors.Wrapf(err, "save standing %s", key)
}

func (s *StandingStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode=WAL;
		CREATE TABLE IF NOT EXISTS standings (
			player_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			kind TEXT NOT NULL,
			high_score INTEGER NOT NULL DEFAULT 0,
			streak INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (player_id, mode, kind)
		);
	`)
	return errors.Wrap(err, "init standing schema")
}
