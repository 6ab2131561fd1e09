package cli

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/auth"
	"maipocket-quiz/internal/config"
	"maipocket-quiz/internal/domain"
	"maipocket-quiz/internal/infra/backend"
	"maipocket-quiz/internal/infra/media"
	"maipocket-quiz/internal/infra/memory"
	"maipocket-quiz/internal/infra/postgres"
	"maipocket-quiz/internal/infra/redis"
	"maipocket-quiz/internal/infra/store"
)

// runtime holds the adapters selected by config and the functions that release them.
type runtime struct {
	service  *app.SessionService
	verifier *auth.Verifier
	rules    app.Rules
	closers  []func() error
}

func (r *runtime) Close() error {
	var result *multierror.Error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// rulesFromConfig overlays configured values on the default timings.
func rulesFromConfig(cfg config.Config) app.Rules {
	def := app.DefaultRules()
	q := cfg.Quiz
	return app.Rules{
		Ranked: app.ModeRules{
			Questions:    config.IntOr(q.RankedQuestions, def.Ranked.Questions),
			MinQuestions: config.IntOr(q.RankedMinQuestions, def.Ranked.MinQuestions),
		},
		Casual: app.ModeRules{
			Questions:    config.IntOr(q.CasualQuestions, def.Casual.Questions),
			MinQuestions: config.IntOr(q.CasualMinQuestions, def.Casual.MinQuestions),
		},
		QuestionTimeLimit:   config.TTLDuration(q.TimeLimit, def.QuestionTimeLimit),
		WrongRevealDelay:    config.TTLDuration(q.WrongRevealDelay, def.WrongRevealDelay),
		CorrectShowDelay:    config.TTLDuration(q.CorrectShowDelay, def.CorrectShowDelay),
		CorrectAdvanceDelay: config.TTLDuration(q.CorrectAdvanceDelay, def.CorrectAdvanceDelay),
		MediaStallTimeout:   config.TTLDuration(q.MediaStallTimeout, def.MediaStallTimeout),
		BaseLives:           config.IntOr(q.BaseLives, def.BaseLives),
		PassLives:           config.IntOr(q.PassLives, def.PassLives),
		ResultRetention:     config.TTLDuration(q.ResultRetention, def.ResultRetention),
	}
}

// buildRuntime wires the session service. With backend.url set the MaiPocket
// backend serves questions, scores and entitlements; otherwise the service runs
// standalone on Postgres or the YAML question bank.
func buildRuntime(ctx context.Context, cfg config.Config) (rt *runtime, err error) {
	rt = &runtime{rules: rulesFromConfig(cfg)}
	defer func() {
		if err != nil {
			if cerr := rt.Close(); cerr != nil {
				log.Printf("release partial runtime: %v", cerr)
			}
		}
	}()

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, redisClient.Close)
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL); err != nil {
			return rt, err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return rt, errors.Wrap(err, "connect postgres")
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
	}

	var client *backend.Client
	if cfg.Backend.URL != "" {
		client = backend.NewClient(
			cfg.Backend.URL,
			config.TTLDuration(cfg.Backend.Timeout, 5*time.Second),
			config.TTLDuration(cfg.Backend.RetryFor, 5*time.Second),
		)
	}

	questions, err := questionSource(cfg, client, pool, redisClient)
	if err != nil {
		return rt, err
	}

	mediaCache, err := media.NewDiskCache(
		cfg.Media.Dir,
		config.TTLDuration(cfg.Media.Timeout, 10*time.Second),
		config.IntOr(cfg.Media.Parallelism, 4),
	)
	if err != nil {
		return rt, err
	}

	var remote app.ScoreSink
	switch {
	case client != nil:
		remote = backend.NewScoreSink(client)
	case pool != nil:
		remote = postgres.NewScoreSink(pool)
	}

	local, closeLocal, err := store.NewStandingStoreByEngine(cfg.LocalStore.Engine, cfg.LocalStore.Path, redisClient)
	if err != nil {
		return rt, err
	}
	rt.closers = append(rt.closers, closeLocal)

	var entitlements app.Entitlements = app.StaticEntitlements(cfg.Quiz.LifePass)
	if client != nil {
		entitlements = backend.NewEntitlements(client)
	}

	var sessions app.SessionRepository = memory.NewSessionStore()
	if redisClient != nil {
		node, _ := os.Hostname()
		sessions = redis.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), node)
	}

	// Unsigned tokens are only trusted when the backend is the score authority and verifies them itself.
	rt.verifier = auth.NewVerifier(cfg.Auth.JWTSecret, client != nil)
	if client == nil && cfg.Auth.JWTSecret == "" {
		log.Printf("auth.jwt_secret not set: every player is anonymous")
	}

	rt.service = app.NewSessionService(sessions, app.Deps{
		Questions:    questions,
		Media:        mediaCache,
		Scores:       app.NewLedger(remote, local),
		Entitlements: entitlements,
		Clock:        app.SystemClock(),
	}, rt.rules)
	return rt, nil
}

func questionSource(cfg config.Config, client *backend.Client, pool *pgxpool.Pool, redisClient *goredis.Client) (app.QuestionSource, error) {
	if client != nil {
		return backend.NewQuestionSource(client), nil
	}

	var loader memory.PoolLoader
	if pool != nil {
		loader = postgres.NewQuestionLoader(pool)
	} else {
		entries, err := loadBank(cfg.Questions.Bank)
		if err != nil {
			return nil, err
		}
		loader = memory.NewStaticPoolLoader(entries)
	}

	ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		return redis.NewQuestionPool(redisClient, loader, ttl), nil
	}
	return memory.NewQuestionPool(loader, ttl), nil
}

func loadBank(path string) ([]memory.PoolEntry, error) {
	if path == "" {
		path = "config/questions.yaml"
	}
	entries, err := memory.LoadBank(path)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %d questions from %s", len(entries), path)
	return entries, nil
}

// playerLabel is used in logs so raw tokens never reach them.
func playerLabel(p domain.Player) string {
	if p.Authenticated {
		return "user " + p.ID
	}
	return p.ID
}
