// Package cache opens the Redis client shared by the idempotency store and
// the event publisher.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func OpenRedis(ctx context.Context, o Options, log zerolog.Logger) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s db %d: %w", o.Addr, o.DB, err)
	}
	log.Info().Str("addr", o.Addr).Int("db", o.DB).Msg("redis: connected")
	return r, nil
}
