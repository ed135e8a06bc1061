package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/julien-nc/integration-suitecrm/notify"
	"github.com/julien-nc/integration-suitecrm/redis/config"
	"github.com/julien-nc/integration-suitecrm/redis/tasks"
	"github.com/julien-nc/integration-suitecrm/store/memory"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
	"github.com/julien-nc/integration-suitecrm/sweep"
)

func newTestHandler(t *testing.T) *tasks.Handler {
	t.Helper()

	st := memory.New()
	logger := zap.NewNop()
	client := suitecrm.NewClient(st, logger)
	sweeper := sweep.New(st, client, &notify.LogEmitter{Logger: logger}, logger)

	return tasks.NewHandler(sweeper)
}

func TestNewServer(t *testing.T) {
	cfg := &config.RedisConfig{
		Host:    "localhost",
		Port:    6379,
		Workers: 5,
	}
	handler := newTestHandler(t)

	srv, err := NewServer(cfg, handler)
	require.NoError(t, err)
	require.NotNil(t, srv)

	assert.NotNil(t, srv.server)
	assert.NotNil(t, srv.scheduler)
	assert.Equal(t, cfg, srv.cfg)
	assert.Equal(t, handler, srv.handler)
	assert.False(t, srv.running)
}

func TestServerStartRejectsSecondStart(t *testing.T) {
	cfg := &config.RedisConfig{
		Host:    "localhost",
		Port:    6379,
		Workers: 5,
	}

	srv, err := NewServer(cfg, newTestHandler(t))
	require.NoError(t, err)

	srv.mu.Lock()
	srv.running = true
	srv.mu.Unlock()

	err = srv.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
