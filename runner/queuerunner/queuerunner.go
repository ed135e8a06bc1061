// Package queuerunner runs the redis-backed worker that executes the
// periodic alert sweep via asynq.
package queuerunner

import (
	"context"

	"go.uber.org/zap"

	"github.com/julien-nc/integration-suitecrm/notify"
	"github.com/julien-nc/integration-suitecrm/redis"
	redisconfig "github.com/julien-nc/integration-suitecrm/redis/config"
	"github.com/julien-nc/integration-suitecrm/redis/tasks"
	"github.com/julien-nc/integration-suitecrm/runner"
	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
	"github.com/julien-nc/integration-suitecrm/sweep"
)

type queuerunner struct {
	srv    *redis.Server
	client *redis.Client
	st     store.Store
	logger *zap.Logger
}

func New(cfg *runner.Config) (runner.Runner, error) {
	logger, err := runner.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	st, err := runner.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	redisCfg, err := redisconfig.NewRedisConfig()
	if err != nil {
		return nil, err
	}

	crmClient := suitecrm.NewClient(st, logger)
	sweeper := sweep.New(st, crmClient, &notify.LogEmitter{Logger: logger}, logger)

	srv, err := redis.NewServer(redisCfg, tasks.NewHandler(sweeper))
	if err != nil {
		return nil, err
	}

	client, err := redis.NewClient(redisCfg)
	if err != nil {
		return nil, err
	}

	ans := queuerunner{
		srv:    srv,
		client: client,
		st:     st,
		logger: logger,
	}

	return &ans, nil
}

func (q *queuerunner) Run(ctx context.Context) error {
	// kick off a first sweep right away instead of waiting for the schedule
	task, err := tasks.CreateCheckAlertsTask()
	if err != nil {
		return err
	}

	if err := q.client.EnqueueTask(ctx, task.Type(), task.Payload()); err != nil {
		q.logger.Warn("failed to enqueue initial sweep", zap.Error(err))
	}

	return q.srv.Start(ctx)
}

func (q *queuerunner) Close(context.Context) error {
	q.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms

	if err := q.client.Close(); err != nil {
		q.logger.Warn("failed to close redis client", zap.Error(err))
	}

	return q.st.Close()
}
