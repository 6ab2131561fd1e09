package redis

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

// StandingStore keeps standings in a hash per key:
// HSET quiz:standing:{player}:{mode}:{kind} high {n} streak {n}
type StandingStore struct {
	client *redis.Client
}

func NewStandingStore(client *redis.Client) *StandingStore {
	return &StandingStore{client: client}
}

func (s *StandingStore) Load(ctx context.Context, key app.StandingKey) (domain.Standing, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return domain.Standing{}, errors.Wrapf(err, "load standing %s", key)
	}
	return domain.Standing{
		HighScore: atoi(fields["high"]),
		Streak:    atoi(fields["streak"]),
	}, nil
}

func (s *StandingStore) Save(ctx context.Context, key app.StandingKey, standing domain.Standing) error {
	err := s.client.HSet(ctx, s.key(key), "high", standing.HighScore, "streak", standing.Streak).Err()
	return errors.Wrapf(err, "save standing %s", key)
}

func (s *StandingStore) key(key app.StandingKey) string {
	return "quiz:standing:" + key.String()
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
