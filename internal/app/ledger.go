package app

import (
	"context"
	"fmt"
	"log"

	"maipocket-quiz/internal/domain"
)

// Ledger routes standings and submissions to the one authority for a player:
// the remote sink for authenticated players, the local store for anonymous ones.
// The local store is read as a fallback when the remote errors and mirrors the
// remote's values after a successful submission; it never computes a competing value.
type Ledger struct {
	remote ScoreSink
	local  StandingStore
}

func NewLedger(remote ScoreSink, local StandingStore) *Ledger {
	return &Ledger{remote: remote, local: local}
}

func (l *Ledger) authoritative(player domain.Player) bool {
	return player.Authenticated && l.remote != nil
}

// Standing returns the streak and high score the next session starts from.
func (l *Ledger) Standing(ctx context.Context, player domain.Player, mode domain.Mode, kind domain.MediaKind) (domain.Standing, error) {
	key := StandingKey{PlayerID: player.ID, Mode: mode, Kind: kind}
	if !l.authoritative(player) {
		return l.local.Load(ctx, key)
	}

	standing, err := l.remote.Standing(ctx, player, mode, kind)
	if err == nil {
		return standing, nil
	}
	log.Printf("standing for %s unavailable, using local copy: %v", key, err)
	return l.local.Load(ctx, key)
}

// Submit records a finished session. On transport failure it returns a degraded
// result carrying the last known local high score together with the error.
func (l *Ledger) Submit(ctx context.Context, player domain.Player, sub domain.Submission) (domain.ScoreSubmissionResult, error) {
	key := StandingKey{PlayerID: player.ID, Mode: sub.Mode, Kind: sub.Kind}
	if !l.authoritative(player) {
		return l.submitLocal(ctx, key, sub)
	}

	res, err := l.remote.Submit(ctx, player, sub)
	if err != nil {
		known, lerr := l.local.Load(ctx, key)
		if lerr != nil {
			log.Printf("local standing for %s unreadable: %v", key, lerr)
		}
		return domain.ScoreSubmissionResult{
			HighScore:  known.HighScore,
			NextStreak: sub.NextStreak,
			Degraded:   true,
		}, err
	}

	mirror := domain.Standing{HighScore: res.HighScore, Streak: res.NextStreak}
	if err := l.local.Save(ctx, key, mirror); err != nil {
		log.Printf("mirror standing for %s: %v", key, err)
	}
	return res, nil
}

func (l *Ledger) submitLocal(ctx context.Context, key StandingKey, sub domain.Submission) (domain.ScoreSubmissionResult, error) {
	prev, err := l.local.Load(ctx, key)
	if err != nil {
		return domain.ScoreSubmissionResult{Degraded: true, NextStreak: sub.NextStreak}, fmt.Errorf("load local standing: %w", err)
	}

	high := prev.HighScore
	if sub.AccumulatedStreak > high {
		high = sub.AccumulatedStreak
	}
	res := domain.ScoreSubmissionResult{
		HighScore:   high,
		IsNewRecord: sub.AccumulatedStreak > prev.HighScore,
		NextStreak:  sub.NextStreak,
	}
	if err := l.local.Save(ctx, key, domain.Standing{HighScore: high, Streak: sub.NextStreak}); err != nil {
		res.Degraded = true
		return res, fmt.Errorf("save local standing: %w", err)
	}
	return res, nil
}

// StaticEntitlements grants or withholds the life pass for every player.
type StaticEntitlements bool

func (e StaticEntitlements) LifePassActive(context.Context, domain.Player) (bool, error) {
	return bool(e), nil
}
