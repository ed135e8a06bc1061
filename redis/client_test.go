package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/julien-nc/integration-suitecrm/redis/config"
)

func TestNewClient(t *testing.T) {
	t.Run("rejects unreachable redis", func(t *testing.T) {
		cfg := &config.RedisConfig{
			Host: "127.0.0.1",
			Port: 1,
		}

		client, err := NewClient(cfg)
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("rejects unresolvable host", func(t *testing.T) {
		cfg := &config.RedisConfig{
			Host: "redis.invalid",
			Port: 6379,
		}

		client, err := NewClient(cfg)
		assert.Error(t, err)
		assert.Nil(t, client)
	})
}
