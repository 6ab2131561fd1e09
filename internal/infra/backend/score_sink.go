package backend

import (
	"context"
	"fmt"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

const (
	scoreURL    = "/quiz/score"
	standingURL = "/quiz/standing"
)

// ScoreSink submits finished sessions to the backend, which owns high scores,
// streaks and the currency economy.
type ScoreSink struct {
	client *Client
}

var _ app.ScoreSink = (*ScoreSink)(nil)

func NewScoreSink(client *Client) *ScoreSink {
	return &ScoreSink{client: client}
}

type scoreRequest struct {
	Mode              domain.Mode      `json:"mode"`
	QuestionMode      domain.MediaKind `json:"questionMode"`
	Score             int              `json:"score"`
	AccumulatedStreak int              `json:"accumulatedStreak"`
	CurrentStreak     int              `json:"currentStreak"`
}

type scoreResponse struct {
	HighScore            int  `json:"highScore"`
	IsNewRecord          bool `json:"isNewRecord"`
	CurrentStreak        int  `json:"currentStreak"`
	RewardCurrencyEarned int  `json:"rewardCurrencyEarned"`
	DailyRewardEarned    int  `json:"dailyRewardEarned"`
	DailyRewardCap       int  `json:"dailyRewardCap"`
}

type standingResponse struct {
	HighScore     int `json:"highScore"`
	CurrentStreak int `json:"currentStreak"`
}

// Submit is sent once and never retried; a lost response must not double-count a session.
func (s *ScoreSink) Submit(ctx context.Context, player domain.Player, sub domain.Submission) (domain.ScoreSubmissionResult, error) {
	resp, err := s.client.request(ctx, player).
		SetBody(scoreRequest{
			Mode:              sub.Mode,
			QuestionMode:      sub.Kind,
			Score:             sub.RawScore,
			AccumulatedStreak: sub.AccumulatedStreak,
			CurrentStreak:     sub.NextStreak,
		}).
		Post(scoreURL)
	if err != nil {
		return domain.ScoreSubmissionResult{}, fmt.Errorf("%w: submit score: %v", domain.ErrTransport, err)
	}
	var out scoreResponse
	if err := decode(resp, &out); err != nil {
		return domain.ScoreSubmissionResult{}, fmt.Errorf("%w: submit score: %v", domain.ErrTransport, err)
	}
	return domain.ScoreSubmissionResult{
		HighScore:            out.HighScore,
		IsNewRecord:          out.IsNewRecord,
		NextStreak:           out.CurrentStreak,
		RewardCurrencyEarned: out.RewardCurrencyEarned,
		DailyRewardEarned:    out.DailyRewardEarned,
		DailyRewardCap:       out.DailyRewardCap,
	}, nil
}

func (s *ScoreSink) Standing(ctx context.Context, player domain.Player, mode domain.Mode, kind domain.MediaKind) (domain.Standing, error) {
	var out standingResponse
	err := s.client.retry(ctx, "fetch standing", func() error {
		resp, err := s.client.request(ctx, player).
			SetQueryParam("mode", string(mode)).
			SetQueryParam("questionMode", string(kind)).
			Get(standingURL)
		if err != nil {
			return err
		}
		return retryable(decode(resp, &out))
	})
	if err != nil {
		return domain.Standing{}, fmt.Errorf("%w: fetch standing: %v", domain.ErrTransport, err)
	}
	return domain.Standing{HighScore: out.HighScore, Streak: out.CurrentStreak}, nil
}
