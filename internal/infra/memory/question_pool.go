package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

// PoolLoader fetches every candidate question for a kind and filter from a backing store.
type PoolLoader interface {
	LoadPool(ctx context.Context, kind domain.MediaKind, filter domain.Filter) ([]domain.Question, error)
}

// QuestionPool caches candidate pools with TTL to avoid repeated loads and samples
// each session from the cached pool.
type QuestionPool struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

var _ app.QuestionSource = (*QuestionPool)(nil)

func NewQuestionPool(loader PoolLoader, ttl time.Duration) *QuestionPool {
	return &QuestionPool{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

// Fetch samples up to req.Count questions. A short pool is returned as is; the
// caller decides whether it is enough.
func (p *QuestionPool) Fetch(ctx context.Context, req app.FetchRequest) ([]domain.Question, error) {
	pool, err := p.pool(ctx, req.Kind, req.Filter.Normalize())
	if err != nil {
		return nil, err
	}
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return Sample(pool, req.Count, p.rnd), nil
}

func (p *QuestionPool) pool(ctx context.Context, kind domain.MediaKind, filter domain.Filter) ([]domain.Question, error) {
	key := PoolKey(kind, filter)
	now := p.clock()

	p.mu.RLock()
	if entry, ok := p.cache[key]; ok && entry.expiresAt.After(now) {
		p.mu.RUnlock()
		return entry.questions, nil
	}
	p.mu.RUnlock()

	result, err, _ := p.sf.Do(key, func() (interface{}, error) {
		now := p.clock()
		p.mu.RLock()
		if entry, ok := p.cache[key]; ok && entry.expiresAt.After(now) {
			p.mu.RUnlock()
			return entry.questions, nil
		}
		p.mu.RUnlock()

		questions, err := p.loader.LoadPool(ctx, kind, filter)
		if err != nil {
			return nil, ContentError(err)
		}

		p.mu.Lock()
		p.cache[key] = cachedPool{
			questions: questions,
			expiresAt: now.Add(p.ttlWithJitter()),
		}
		p.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return TTLWithJitter(p.ttl, p.rnd)
}

// ContentError maps a loader failure onto the content errors sessions understand.
// Errors that already carry one of them pass through.
func ContentError(err error) error {
	if err == nil || errors.Is(err, domain.ErrNotEnoughContent) || errors.Is(err, domain.ErrContentUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
}

// PoolKey identifies a cached pool.
func PoolKey(kind domain.MediaKind, filter domain.Filter) string {
	filter = filter.Normalize()
	return string(kind) + ":" + string(filter.Category) + ":" + filter.Value
}

// TTLWithJitter adds up to 10% jitter to spread expirations.
func TTLWithJitter(ttl time.Duration, rnd *rand.Rand) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rnd.Int63n(jitterMax+1))
}

// Sample returns n questions from pool in random order without modifying pool.
func Sample(pool []domain.Question, n int, rnd *rand.Rand) []domain.Question {
	if n <= 0 || n > len(pool) {
		n = len(pool)
	}
	out := make([]domain.Question, 0, n)
	for _, i := range rnd.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}

// PoolEntry is one question in a static pool, tagged with the filter values it matches.
type PoolEntry struct {
	Kind     domain.MediaKind             `json:"kind" yaml:"kind"`
	Tags     map[domain.Category][]string `json:"tags" yaml:"tags"`
	Question domain.Question              `json:"question" yaml:"question"`
}

// Matches reports whether the entry belongs to the kind and filter.
func (e PoolEntry) Matches(kind domain.MediaKind, filter domain.Filter) bool {
	if e.Kind != kind {
		return false
	}
	filter = filter.Normalize()
	if filter.Category == domain.CategoryAll {
		return true
	}
	for _, v := range e.Tags[filter.Category] {
		if v == filter.Value {
			return true
		}
	}
	return false
}

// StaticPoolLoader is a simple loader backed by an in-memory list (useful for tests/demos).
type StaticPoolLoader struct {
	entries []PoolEntry
}

func NewStaticPoolLoader(entries []PoolEntry) *StaticPoolLoader {
	return &StaticPoolLoader{entries: entries}
}

func (l *StaticPoolLoader) LoadPool(_ context.Context, kind domain.MediaKind, filter domain.Filter) ([]domain.Question, error) {
	var out []domain.Question
	for _, e := range l.entries {
		if e.Matches(kind, filter) {
			out = append(out, e.Question)
		}
	}
	return out, nil
}
