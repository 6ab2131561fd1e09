package http

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/auth"
	"maipocket-quiz/internal/domain"
	"maipocket-quiz/internal/infra/memory"
)

type instantMedia struct{}

func (instantMedia) Warm(_ context.Context, urls []string) <-chan app.MediaStatus {
	ch := make(chan app.MediaStatus, len(urls))
	for _, u := range urls {
		ch <- app.MediaStatus{URL: u, Ready: true}
	}
	close(ch)
	return ch
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.SessionStore) {
	t.Helper()
	entries := make([]memory.PoolEntry, 0, 12)
	for i := 1; i <= 12; i++ {
		entries = append(entries, memory.PoolEntry{
			Kind: domain.KindVisual,
			Tags: map[domain.Category][]string{domain.CategoryVersion: {"BUDDiES"}},
			Question: domain.Question{
				ID:            fmt.Sprintf("q%d", i),
				MediaURL:      fmt.Sprintf("https://cdn.test/jacket/%d.png", i),
				Choices:       []string{answerFor(fmt.Sprintf("q%d", i)), "decoy-a", "decoy-b"},
				CorrectAnswer: answerFor(fmt.Sprintf("q%d", i)),
			},
		})
	}
	entries[0].Tags = map[domain.Category][]string{domain.CategoryVersion: {"FESTiVAL"}}

	rules := app.DefaultRules()
	rules.WrongRevealDelay = 10 * time.Millisecond
	rules.CorrectShowDelay = 10 * time.Millisecond

	store := memory.NewSessionStore()
	service := app.NewSessionService(store, app.Deps{
		Questions: memory.NewQuestionPool(memory.NewStaticPoolLoader(entries), time.Minute),
		Media:     instantMedia{},
		Scores:    app.NewLedger(nil, memory.NewStandingStore()),
	}, rules)

	srv := httptest.NewServer(NewRouter(service, auth.NewVerifier("", false)))
	t.Cleanup(srv.Close)
	return srv, store
}

func answerFor(questionID string) string {
	return "song-" + questionID
}
