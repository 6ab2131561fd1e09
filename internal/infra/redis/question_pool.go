package redis

import (
	"context"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
	"maipocket-quiz/internal/infra/memory"
)

// QuestionPool caches candidate pools in Redis and falls back to a loader on cache miss.
// Pools are stored as JSON: SET quiz:pool:{xxh3(kind:category:value)} [...questions]
type QuestionPool struct {
	client *redis.Client
	loader memory.PoolLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ app.QuestionSource = (*QuestionPool)(nil)

func NewQuestionPool(client *redis.Client, loader memory.PoolLoader, ttl time.Duration) *QuestionPool {
	return &QuestionPool{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *QuestionPool) Fetch(ctx context.Context, req app.FetchRequest) ([]domain.Question, error) {
	filter := req.Filter.Normalize()
	key := p.poolKey(req.Kind, filter)

	pool, ok := p.cached(ctx, key)
	if !ok {
		result, err, _ := p.sf.Do(key, func() (interface{}, error) {
			// Re-check cache in case another goroutine filled it.
			if pool, ok := p.cached(ctx, key); ok {
				return pool, nil
			}

			pool, err := p.loader.LoadPool(ctx, req.Kind, filter)
			if err != nil {
				return nil, memory.ContentError(err)
			}
			p.store(ctx, key, pool)
			return pool, nil
		})
		if err != nil {
			return nil, err
		}
		pool = result.([]domain.Question)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return memory.Sample(pool, req.Count, p.rnd), nil
}

func (p *QuestionPool) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := p.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("question pool cache read %s: %v", key, err)
		}
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		log.Printf("question pool cache decode %s: %v", key, err)
		return nil, false
	}
	return pool, true
}

func (p *QuestionPool) store(ctx context.Context, key string, pool []domain.Question) {
	raw, err := json.Marshal(pool)
	if err != nil {
		log.Printf("question pool cache encode %s: %v", key, err)
		return
	}
	p.mu.Lock()
	ttl := memory.TTLWithJitter(p.ttl, p.rnd)
	p.mu.Unlock()
	// best-effort; the next session reloads on failure
	if err := p.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("question pool cache write %s: %v", key, err)
	}
}

func (p *QuestionPool) poolKey(kind domain.MediaKind, filter domain.Filter) string {
	return "quiz:pool:" + strconv.FormatUint(xxh3.HashString(memory.PoolKey(kind, filter)), 16)
}
