// Package config provides Redis configuration for the background task queue.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RedisConfig holds Redis connection and worker parameters.
type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	Workers       int
	RetryInterval time.Duration
	MaxRetries    int
}

const (
	defaultHost          = "localhost"
	defaultPort          = 6379
	defaultDB            = 0
	defaultWorkers       = 5
	defaultRetryInterval = 5 * time.Second
	defaultMaxRetries    = 3
)

// NewRedisConfig builds a configuration from REDIS_* environment variables,
// falling back to defaults.
func NewRedisConfig() (*RedisConfig, error) {
	cfg := &RedisConfig{
		Host:          envString("REDIS_HOST", defaultHost),
		Password:      os.Getenv("REDIS_PASSWORD"),
		RetryInterval: defaultRetryInterval,
		MaxRetries:    defaultMaxRetries,
	}

	var err error

	cfg.Port, err = envInt("REDIS_PORT", defaultPort)
	if err != nil {
		return nil, err
	}

	cfg.DB, err = envInt("REDIS_DB", defaultDB)
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = envInt("REDIS_WORKERS", defaultWorkers)
	if err != nil {
		return nil, err
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid redis port: %d", cfg.Port)
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("invalid worker count: %d", cfg.Workers)
	}

	return cfg, nil
}

// GetRedisAddr returns the host:port address.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return def
}

func envInt(key string, def int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}
