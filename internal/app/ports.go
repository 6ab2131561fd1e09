package app

import (
	"context"
	"time"

	"maipocket-quiz/internal/domain"
)

// FetchRequest asks a question source for one session's worth of questions.
type FetchRequest struct {
	Mode   domain.Mode
	Kind   domain.MediaKind
	Filter domain.Filter
	Count  int
}

// QuestionSource returns an ordered, finite question list for a session.
// Implementations return domain.ErrContentUnavailable or domain.ErrNotEnoughContent.
type QuestionSource interface {
	Fetch(ctx context.Context, req FetchRequest) ([]domain.Question, error)
}

// MediaStatus reports the cache outcome for one URL.
type MediaStatus struct {
	URL   string
	Ready bool
}

// MediaCache warms media for a session. The returned channel yields one status per URL
// and is closed once every URL has been reported. It never fails fatally.
type MediaCache interface {
	Warm(ctx context.Context, urls []string) <-chan MediaStatus
}

// ScoreSink is the only place session results become durable.
// Implementations return domain.ErrTransport when the call fails in transit.
type ScoreSink interface {
	Submit(ctx context.Context, player domain.Player, sub domain.Submission) (domain.ScoreSubmissionResult, error)
	Standing(ctx context.Context, player domain.Player, mode domain.Mode, kind domain.MediaKind) (domain.Standing, error)
}

// Entitlements reports whether a ranked life pass is active for the player.
type Entitlements interface {
	LifePassActive(ctx context.Context, player domain.Player) (bool, error)
}

// StandingKey addresses one local standing record.
type StandingKey struct {
	PlayerID string
	Mode     domain.Mode
	Kind     domain.MediaKind
}

// String renders the key as "player:mode:kind".
func (k StandingKey) String() string {
	return k.PlayerID + ":" + string(k.Mode) + ":" + string(k.Kind)
}

// StandingStore persists the last known standing locally. Load returns a zero Standing for unknown keys.
type StandingStore interface {
	Load(ctx context.Context, key StandingKey) (domain.Standing, error)
	Save(ctx context.Context, key StandingKey, standing domain.Standing) error
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules the countdown and reveal delays.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock is the wall-clock implementation of Clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
