package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Ping checks redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.redisdb.Publish(ctx, channel, payload).Err()
}

// PSubscribe subscribes to every channel matching pattern. The caller owns the
// returned subscription and must close it.
func (c *Client) PSubscribe(ctx context.Context, pattern string) *redis.PubSub {
	return c.redisdb.PSubscribe(ctx, pattern)
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}
