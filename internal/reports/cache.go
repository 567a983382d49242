package reports

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	versionKey = "reports:version"
	// BumpChannel carries the new version after every sales write.
	BumpChannel = "sales.bump"
	// versionMaxAge bounds how long a process trusts its local copy of the
	// version when no bump arrives over pub/sub.
	versionMaxAge = 5 * time.Second
)

// Cache is a read-through JSON cache in Redis. Keys end with a global
// version; bumping the version orphans every cached report, and the old
// entries age out through their TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration

	mu        sync.Mutex
	version   int64
	fetchedAt time.Time
	now       func() time.Time
}

// NewCache instantiates the cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, now: time.Now}
}

// Version returns the current version, reading Redis only when the local
// copy is older than versionMaxAge.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	c.mu.Lock()
	if c.version > 0 && c.now().Sub(c.fetchedAt) < versionMaxAge {
		v := c.version
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	// SetNX keeps a concurrent Bump from being overwritten.
	if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	v, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil {
		return 0, err
	}
	return c.observe(v), nil
}

// observe records v and returns the highest version seen. Versions only
// grow, so a late reply never rolls the local copy back.
func (c *Cache) observe(v int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v > c.version {
		c.version = v
	}
	c.fetchedAt = c.now()
	return c.version
}

// BuildKey joins parts with ':' and appends the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	v, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return joined + ":" + strconv.FormatInt(v, 10), nil
}

// FetchJSON decodes the value at key into dest, or runs loader and stores
// its result. Redis failures degrade to calling loader directly.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("reports: cache loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader, nil)
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if json.Unmarshal(raw, dest) == nil {
			return nil
		}
	case !errors.Is(err, redis.Nil):
		return loadInto(ctx, dest, loader, nil)
	}
	return loadInto(ctx, dest, loader, func(raw []byte) error {
		return c.client.Set(ctx, key, raw, c.ttl).Err()
	})
}

// loadInto runs loader and round-trips its value through JSON into dest so
// cached and fresh results decode identically.
func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error), store func([]byte) error) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if store != nil {
		// a failed write only costs the next caller a recompute
		_ = store(raw)
	}
	return json.Unmarshal(raw, dest)
}

// Bump moves every process to a new version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	v, err := c.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return err
	}
	c.observe(v)
	return c.client.Publish(ctx, BumpChannel, strconv.FormatInt(v, 10)).Err()
}

// ListenForInvalidation applies bumps published by other processes, such
// as the cleanup worker, until ctx ends.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = BumpChannel
	}
	sub := c.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if v, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
					c.observe(v)
					continue
				}
				c.expire()
			}
		}
	}()
	return nil
}

// expire forces the next Version call to read Redis.
func (c *Cache) expire() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func cacheKey(kind string, parts ...string) string {
	return strings.Join(append([]string{"reports", kind}, parts...), ":")
}
