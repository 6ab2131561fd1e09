package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

func TestQuestionPoolCaches(t *testing.T) {
	loader := &countingLoader{PoolLoader: NewStaticPoolLoader(sampleEntries(12))}
	pool := NewQuestionPool(loader, time.Minute)
	req := app.FetchRequest{Mode: domain.ModeCasual, Kind: domain.KindVisual, Count: 10}

	first, err := pool.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(first) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(first))
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	if _, err := pool.Fetch(context.Background(), req); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}

	pool.clock = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := pool.Fetch(context.Background(), req); err != nil {
		t.Fatalf("fetch 3: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls.Load())
	}
}

func TestQuestionPoolFiltersAndSamplesDistinct(t *testing.T) {
	pool := NewQuestionPool(NewStaticPoolLoader(sampleEntries(12)), time.Minute)

	got, err := pool.Fetch(context.Background(), app.FetchRequest{
		Kind:   domain.KindVisual,
		Filter: domain.Filter{Category: domain.CategoryLevel, Value: "14"},
		Count:  10,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("expected the 6 level-14 questions, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, q := range got {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
	}

	audio, err := pool.Fetch(context.Background(), app.FetchRequest{Kind: domain.KindAudio, Count: 10})
	if err != nil {
		t.Fatalf("fetch audio: %v", err)
	}
	if len(audio) != 0 {
		t.Fatalf("expected no audio questions, got %d", len(audio))
	}
}

func TestSampleLeavesPoolUntouched(t *testing.T) {
	entries := sampleEntries(5)
	pool := make([]domain.Question, 0, len(entries))
	for _, e := range entries {
		pool = append(pool, e.Question)
	}
	got := Sample(pool, 3, rand.New(rand.NewSource(1)))
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	for i, q := range pool {
		if q.ID != fmt.Sprintf("q%d", i+1) {
			t.Fatalf("pool reordered at %d: %s", i, q.ID)
		}
	}
}

func TestTTLWithJitterBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		got := TTLWithJitter(time.Minute, rnd)
		if got < time.Minute || got > time.Minute+6*time.Second {
			t.Fatalf("jittered ttl out of range: %s", got)
		}
	}
	if TTLWithJitter(0, rnd) != 0 {
		t.Fatalf("zero ttl must stay zero")
	}
}

type countingLoader struct {
	PoolLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadPool(ctx context.Context, kind domain.MediaKind, filter domain.Filter) ([]domain.Question, error) {
	l.calls.Add(1)
	return l.PoolLoader.LoadPool(ctx, kind, filter)
}

func sampleEntries(n int) []PoolEntry {
	entries := make([]PoolEntry, 0, n)
	for i := 1; i <= n; i++ {
		level := "13"
		if i%2 == 0 {
			level = "14"
		}
		entries = append(entries, PoolEntry{
			Kind: domain.KindVisual,
			Tags: map[domain.Category][]string{domain.CategoryLevel: {level}},
			Question: domain.Question{
				ID:            fmt.Sprintf("q%d", i),
				MediaURL:      fmt.Sprintf("https://cdn.test/jacket/%d.png", i),
				Choices:       []string{fmt.Sprintf("song-%d", i), "decoy"},
				CorrectAnswer: fmt.Sprintf("song-%d", i),
			},
		})
	}
	return entries
}

type errLoader struct{ err error }

func (l errLoader) LoadPool(context.Context, domain.MediaKind, domain.Filter) ([]domain.Question, error) {
	return nil, l.err
}

func TestQuestionPoolMapsLoaderErrors(t *testing.T) {
	req := app.FetchRequest{Kind: domain.KindVisual, Count: 10}

	_, err := NewQuestionPool(errLoader{err: errors.New("connection refused")}, time.Minute).Fetch(context.Background(), req)
	if !errors.Is(err, domain.ErrContentUnavailable) {
		t.Fatalf("expected content unavailable, got %v", err)
	}

	_, err = NewQuestionPool(errLoader{err: fmt.Errorf("%w: empty bank", domain.ErrNotEnoughContent)}, time.Minute).Fetch(context.Background(), req)
	if !errors.Is(err, domain.ErrNotEnoughContent) || errors.Is(err, domain.ErrContentUnavailable) {
		t.Fatalf("taxonomy errors must pass through unchanged, got %v", err)
	}
}
