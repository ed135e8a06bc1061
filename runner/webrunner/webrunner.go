// Package webrunner serves the HTTP surface and runs the in-process
// periodic alert sweep.
package webrunner

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/julien-nc/integration-suitecrm/notify"
	"github.com/julien-nc/integration-suitecrm/runner"
	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
	"github.com/julien-nc/integration-suitecrm/sweep"
	"github.com/julien-nc/integration-suitecrm/tlmt"
	"github.com/julien-nc/integration-suitecrm/web"
)

type webrunner struct {
	srv     *web.Server
	sweeper *sweep.Service
	st      store.Store
	logger  *zap.Logger
	cfg     *runner.Config
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
	svc := web.NewService(client, st)
	sweeper := sweep.New(st, client, &notify.LogEmitter{Logger: logger}, logger)

	ans := webrunner{
		srv:     web.New(svc, cfg.Addr),
		sweeper: sweeper,
		st:      st,
		logger:  logger,
		cfg:     cfg,
	}

	return &ans, nil
}

func (w *webrunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return w.work(ctx)
	})

	egroup.Go(func() error {
		return w.srv.Start(ctx)
	})

	return egroup.Wait()
}

func (w *webrunner) Close(context.Context) error {
	w.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms

	return w.st.Close()
}

// work triggers a sweep every interval until ctx is cancelled.
func (w *webrunner) work(ctx context.Context) error {
	ticker := time.NewTicker(sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t0 := time.Now().UTC()

			if err := w.sweeper.Run(ctx); err != nil {
				w.logger.Warn("alert sweep finished with errors", zap.Error(err))
			}

			evt := tlmt.NewEvent("alert_sweep", map[string]any{
				"duration": time.Now().UTC().Sub(t0).String(),
			})

			_ = runner.Telemetry().Send(ctx, evt)
		}
	}
}
