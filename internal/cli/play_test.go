package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/config"
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

func newPlayService() *app.SessionService {
	entries := make([]memory.PoolEntry, 0, 10)
	for i := 1; i <= 10; i++ {
		answer := fmt.Sprintf("song-%d", i)
		entries = append(entries, memory.PoolEntry{
			Kind: domain.KindAudio,
			Question: domain.Question{
				ID:            fmt.Sprintf("a%d", i),
				MediaURL:      fmt.Sprintf("https://cdn.test/preview/%d.mp3", i),
				Choices:       []string{answer, "decoy-a", "decoy-b", "decoy-c"},
				CorrectAnswer: answer,
			},
		})
	}
	rules := app.DefaultRules()
	rules.WrongRevealDelay = 5 * time.Millisecond
	rules.CorrectShowDelay = 5 * time.Millisecond

	return app.NewSessionService(memory.NewSessionStore(), app.Deps{
		Questions: memory.NewQuestionPool(memory.NewStaticPoolLoader(entries), time.Minute),
		Media:     instantMedia{},
		Scores:    app.NewLedger(nil, memory.NewStandingStore()),
	}, rules)
}

func runPlay(t *testing.T, req app.StartRequest, input string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := playSession(ctx, newPlayService(), domain.Player{ID: "device:test"}, req, strings.NewReader(input), &out); err != nil {
		t.Fatalf("play: %v\n%s", err, out.String())
	}
	return out.String()
}

func TestPlayCasualToCompletion(t *testing.T) {
	out := runPlay(t, app.StartRequest{Mode: domain.ModeCasual, Kind: domain.KindAudio}, "nope\n"+strings.Repeat("1\n", 10))

	if !strings.Contains(out, "enter a number between 1 and 4") {
		t.Fatalf("expected a prompt for bad input, got:\n%s", out)
	}
	if got := strings.Count(out, "correct!"); got != 10 {
		t.Fatalf("expected 10 correct answers, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "Question 10/10") || !strings.Contains(out, "Result: 10 correct") {
		t.Fatalf("expected a full run, got:\n%s", out)
	}
}

func TestPlayRankedWrongAnswerEndsRun(t *testing.T) {
	out := runPlay(t, app.StartRequest{Mode: domain.ModeRanked, Kind: domain.KindAudio}, "2\n")

	if !strings.Contains(out, "wrong, it was song-") {
		t.Fatalf("expected the correct answer to be revealed, got:\n%s", out)
	}
	if !strings.Contains(out, "Result: 0 correct") || !strings.Contains(out, "high score 0") {
		t.Fatalf("expected a failed ranked result, got:\n%s", out)
	}
	if strings.Contains(out, "Question 2/") {
		t.Fatalf("a ranked run with one life must stop after the first miss:\n%s", out)
	}
}

func TestPlayClosedInputAbandons(t *testing.T) {
	out := runPlay(t, app.StartRequest{Mode: domain.ModeCasual, Kind: domain.KindAudio}, "")
	if !strings.Contains(out, "session abandoned") {
		t.Fatalf("expected abandon, got:\n%s", out)
	}
}

func TestPlayRejectsThinFilter(t *testing.T) {
	var out bytes.Buffer
	err := playSession(context.Background(), newPlayService(), domain.Player{ID: "device:test"}, app.StartRequest{
		Mode:   domain.ModeCasual,
		Kind:   domain.KindAudio,
		Filter: domain.Filter{Category: domain.CategoryGenre, Value: "maimai"},
	}, strings.NewReader(""), &out)
	if err == nil || !strings.Contains(err.Error(), domain.ErrNotEnoughContent.Error()) {
		t.Fatalf("expected not enough content, got %v", err)
	}
}

func TestRulesFromConfig(t *testing.T) {
	var cfg config.Config
	cfg.Quiz.RankedQuestions = 30
	cfg.Quiz.TimeLimit = "20s"
	cfg.Quiz.CorrectAdvanceDelay = "500ms"
	cfg.Quiz.PassLives = 5

	rules := rulesFromConfig(cfg)
	def := app.DefaultRules()
	if rules.Ranked.Questions != 30 || rules.Ranked.MinQuestions != def.Ranked.MinQuestions {
		t.Fatalf("unexpected ranked sizing %+v", rules.Ranked)
	}
	if rules.Casual != def.Casual {
		t.Fatalf("casual sizing should default, got %+v", rules.Casual)
	}
	if rules.QuestionTimeLimit != 20*time.Second || rules.CorrectAdvanceDelay != 500*time.Millisecond {
		t.Fatalf("unexpected timings %+v", rules)
	}
	if rules.PassLives != 5 || rules.BaseLives != def.BaseLives {
		t.Fatalf("unexpected lives %d/%d", rules.BaseLives, rules.PassLives)
	}
}
