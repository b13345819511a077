package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"devalayaum/internal/app"
	"devalayaum/internal/config"
)

// env is the set of connections a paymentctl command works with.
type env struct {
	cfg   *config.Config
	db    *sql.DB
	redis *redis.Client
	nrApp *newrelic.Application
}

func (e *env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.db != nil {
		_ = e.db.Close()
	}
	if e.nrApp != nil {
		e.nrApp.Shutdown(5 * time.Second)
	}
}

// connect loads config and opens Postgres, plus Redis when withRedis is set.
func connect(ctx context.Context, withRedis bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	e := &env{cfg: cfg, nrApp: app.NewNewRelic(cfg.NewRelic)}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	e.db, err = app.NewDatabase(connectCtx, cfg.Database, e.nrApp)
	if err != nil {
		e.Close()
		return nil, err
	}
	log.Println("Connected to PostgreSQL")

	if withRedis {
		e.redis, err = app.NewRedisClient(connectCtx, cfg.Redis, e.nrApp)
		if err != nil {
			e.Close()
			return nil, err
		}
		log.Println("Connected to Redis")
	}
	return e, nil
}
