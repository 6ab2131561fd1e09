package memory

import (
	"testing"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	c := app.NewController("session-1", domain.Player{ID: "p1"}, app.Deps{}, app.DefaultRules())
	store.Put(c)
	got, ok := store.Get("session-1")
	if !ok || got != c {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}

	store.Delete("session-1")
	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected session removed")
	}
}
