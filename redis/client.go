// Package redis wraps asynq client/server functionality for background tasks.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/julien-nc/integration-suitecrm/redis/config"
)

// Client wraps an asynq client for enqueueing tasks.
type Client struct {
	client *asynq.Client
	cfg    *config.RedisConfig
	mu     sync.RWMutex
}

// NewClient creates a new client and verifies the Redis connection.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	if err := ping(cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{
		client: client,
		cfg:    cfg,
	}, nil
}

// EnqueueTask enqueues a task with the given type and payload.
func (c *Client) EnqueueTask(ctx context.Context, taskType string, payload []byte, opts ...asynq.Option) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	task := asynq.NewTask(taskType, payload)

	_, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// Close closes the underlying asynq client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.client.Close()
}

// ping verifies connectivity before any task is enqueued.
func ping(cfg *config.RedisConfig) error {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return rdb.Ping(ctx).Err()
}
