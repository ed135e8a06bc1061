package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/julien-nc/integration-suitecrm/redis/config"
	"github.com/julien-nc/integration-suitecrm/redis/tasks"
	"github.com/julien-nc/integration-suitecrm/sweep"
)

// Server wraps an asynq server plus the scheduler that enqueues the
// periodic alert sweep.
type Server struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	handler   tasks.TaskHandler
	cfg       *config.RedisConfig
	mu        sync.RWMutex
	running   bool
}

// NewServer creates a worker server with the provided configuration.
func NewServer(cfg *config.RedisConfig, handler tasks.TaskHandler) (*Server, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Workers,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			if n >= cfg.MaxRetries {
				log.Printf("Task %s exhausted retries: %v", task.Type(), err)

				return -1 * time.Second
			}

			delay := time.Duration(1<<uint(n)) * time.Second
			if delay > cfg.RetryInterval {
				delay = cfg.RetryInterval
			}

			return delay
		},
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Server{
		server:    srv,
		scheduler: scheduler,
		handler:   handler,
		cfg:       cfg,
	}, nil
}

// Start runs the worker and registers the periodic sweep, blocking until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()

		return fmt.Errorf("server already running")
	}

	s.running = true
	s.mu.Unlock()

	task, err := tasks.CreateCheckAlertsTask()
	if err != nil {
		return err
	}

	// asynq marks tasks unique so a slow sweep is not enqueued twice
	if _, err := s.scheduler.Register(
		fmt.Sprintf("@every %s", sweep.Interval),
		task,
		asynq.Unique(sweep.Interval),
	); err != nil {
		return fmt.Errorf("failed to register sweep schedule: %w", err)
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCheckAlerts, s.handler.ProcessTask)
	mux.HandleFunc(tasks.TypeHealthCheck, s.handler.ProcessTask)

	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if err := s.server.Start(mux); err != nil {
		s.scheduler.Shutdown()

		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()

	s.scheduler.Shutdown()
	s.server.Shutdown()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}
