// Package store opens the credential store selected in the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/habedi/paydash/auth"
	"github.com/habedi/paydash/config"
	"github.com/habedi/paydash/db"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CloseFunc releases whatever Open acquired.
type CloseFunc func() error

// Open returns the credential store for cfg.Backend.
// The sqlite backend also initializes db.Db, which the plan cache shares.
func Open(ctx context.Context, cfg config.StoreConfig) (auth.CredentialStore, CloseFunc, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendSQLite, "":
		db.Path = cfg.Path
		if err := db.InitDB(); err != nil {
			return nil, nil, fmt.Errorf("open sqlite credential store: %w", err)
		}
		return db.NewCredentialRepository(db.GetDB()), db.CloseDB, nil

	case config.BackendFile:
		return NewFileStore(cfg.Path), noop, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Debug().Str("addr", cfg.RedisAddr).Msg("Connected to redis credential store")
		return NewRedisStore(client, cfg.RedisPrefix), client.Close, nil

	case config.BackendMemory:
		return auth.NewMemoryStore(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown credential store backend %q", cfg.Backend)
	}
}
