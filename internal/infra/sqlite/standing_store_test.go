package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
	"maipocket-quiz/internal/infra/sqlite"
)

func TestStandingStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "standings.db")
	key := app.StandingKey{PlayerID: "device-1", Mode: domain.ModeRanked, Kind: domain.KindAudio}

	st, err := sqlite.NewStandingStore(dbPath)
	require.NoError(t, err)

	empty, err := st.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Standing{}, empty)

	require.NoError(t, st.Save(ctx, key, domain.Standing{HighScore: 5, Streak: 5}))
	require.NoError(t, st.Save(ctx, key, domain.Standing{HighScore: 7, Streak: 0}))
	require.NoError(t, st.Close())

	reopened, err := sqlite.NewStandingStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = reopened.Close()
	})

	got, err := reopened.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Standing{HighScore: 7, Streak: 0}, got)

	other, err := reopened.Load(ctx, app.StandingKey{PlayerID: "device-1", Mode: domain.ModeCasual, Kind: domain.KindAudio})
	require.NoError(t, err)
	assert.Zero(t, other.HighScore)
}
