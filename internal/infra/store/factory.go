package store

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/infra/memory"
	"maipocket-quiz/internal/infra/redis"
	"maipocket-quiz/internal/infra/sqlite"
)

const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
	EngineRedis  = "redis"
)

// NewStandingStoreByEngine builds the local standing store. The returned close
// function is never nil.
func NewStandingStoreByEngine(engine, path string, client *goredis.Client) (app.StandingStore, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		if path == "" {
			path = filepath.Join("data", "standings.db")
		}
		st, err := sqlite.NewStandingStore(path)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	case EngineMemory:
		return memory.NewStandingStore(), noop, nil
	case EngineRedis:
		if client == nil {
			return nil, noop, errors.New("redis standing store requires redis.addr")
		}
		return redis.NewStandingStore(client), noop, nil
	default:
		return nil, noop, errors.Errorf("unsupported standing store engine: %s", engine)
	}
}
