package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

func TestStandingStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewStandingStore(newClient(mr))
	ctx := context.Background()
	key := app.StandingKey{PlayerID: "device-1", Mode: domain.ModeRanked, Kind: domain.KindVisual}

	empty, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if empty != (domain.Standing{}) {
		t.Fatalf("expected zero standing, got %+v", empty)
	}

	if err := store.Save(ctx, key, domain.Standing{HighScore: 12, Streak: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.HGet("quiz:standing:device-1:ranked:visual", "high"); got != "12" {
		t.Fatalf("expected high=12 in redis, got %q", got)
	}
	got, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != (domain.Standing{HighScore: 12, Streak: 3}) {
		t.Fatalf("unexpected standing %+v", got)
	}
}
