// Package tasks provides the asynq task handlers for background work.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/julien-nc/integration-suitecrm/sweep"
)

// TaskHandler handles processing of queued tasks.
type TaskHandler interface {
	ProcessTask(ctx context.Context, task *asynq.Task) error
}

// Handler implements TaskHandler.
type Handler struct {
	sweeper     *sweep.Service
	taskTimeout time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithTaskTimeout sets the timeout for task processing.
func WithTaskTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.taskTimeout = timeout
	}
}

// NewHandler creates a task handler around the sweep service.
func NewHandler(sweeper *sweep.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		sweeper:     sweeper,
		taskTimeout: 10 * time.Minute,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ProcessTask dispatches a task based on its type.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, cancel := context.WithTimeout(ctx, h.taskTimeout)
	defer cancel()

	switch task.Type() {
	case TypeCheckAlerts:
		return h.processCheckAlerts(ctx, task)
	case TypeHealthCheck:
		return nil // health check task always succeeds
	default:
		return fmt.Errorf("unknown task type: %s", task.Type())
	}
}

func (h *Handler) processCheckAlerts(ctx context.Context, task *asynq.Task) error {
	var payload CheckAlertsPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal check alerts payload: %w", err)
		}
	}

	return h.sweeper.Run(ctx)
}

// CreateCheckAlertsTask builds the periodic sweep task.
func CreateCheckAlertsTask() (*asynq.Task, error) {
	payload, err := json.Marshal(CheckAlertsPayload{})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal check alerts payload: %w", err)
	}

	return asynq.NewTask(TypeCheckAlerts, payload), nil
}
