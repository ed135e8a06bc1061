// Package sweeprunner runs one alert sweep and exits, for host-scheduled
// cron execution. Per-user failures are logged, not encoded in the exit
// status.
package sweeprunner

import (
	"context"

	"go.uber.org/zap"

	"github.com/julien-nc/integration-suitecrm/notify"
	"github.com/julien-nc/integration-suitecrm/runner"
	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
	"github.com/julien-nc/integration-suitecrm/sweep"
)

type sweeprunner struct {
	sweeper *sweep.Service
	st      store.Store
	logger  *zap.Logger
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

	client := suitecrm.NewClient(st, logger)

	ans := sweeprunner{
		sweeper: sweep.New(st, client, &notify.LogEmitter{Logger: logger}, logger),
		st:      st,
		logger:  logger,
	}

	return &ans, nil
}

func (s *sweeprunner) Run(ctx context.Context) error {
	if err := s.sweeper.Run(ctx); err != nil {
		s.logger.Warn("alert sweep finished with errors", zap.Error(err))
	}

	return nil
}

func (s *sweeprunner) Close(context.Context) error {
	s.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms

	return s.st.Close()
}
