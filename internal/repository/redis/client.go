package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the live-state client. Zero fields keep the defaults.
type Options struct {
	PoolSize int
	// StateTTL bounds how long a snapshot outlives a battle that was never
	// cleaned up.
	StateTTL time.Duration
}

const defaultStateTTL = 2 * time.Hour

// Client stores live battle snapshots and decision deadlines in Redis.
type Client struct {
	rdb      *redis.Client
	stateTTL time.Duration
}

// NewClient connects to redisURL and pings it before returning.
func NewClient(ctx context.Context, redisURL string, opts Options) (*Client, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opts.PoolSize > 0 {
		ropts.PoolSize = opts.PoolSize
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newClient(rdb, opts), nil
}

// NewClientFromPool wraps an existing redis.Client, as tests do.
func NewClientFromPool(rdb *redis.Client) *Client {
	return newClient(rdb, Options{})
}

func newClient(rdb *redis.Client, opts Options) *Client {
	ttl := opts.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &Client{rdb: rdb, stateTTL: ttl}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping is used by the health check.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
