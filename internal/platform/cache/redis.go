package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDialCheck = 5 * time.Second

// Options configures the shared Redis client used for sessions, report
// caching and job locks.
type Options struct {
	Addr      string
	Password  string
	DB        int
	DialCheck time.Duration
}

// New connects to Redis and verifies the connection with PING before
// returning the client.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, errors.New("platform/cache: redis address is empty")
	}
	if opts.DialCheck <= 0 {
		opts.DialCheck = defaultDialCheck
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialCheck)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
