// Package notify models the notification events emitted to the host
// application and their user-facing rendering.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const AppID = "integration_suitecrm"

var ErrUnknownSubject = errors.New("unknown notification subject")

// Event is one notification emitted to the host.
type Event struct {
	ID         string         `json:"id"`
	App        string         `json:"app"`
	User       string         `json:"user"`
	Subject    string         `json:"subject"`
	Timestamp  time.Time      `json:"timestamp"`
	Parameters map[string]any `json:"parameters"`
}

// NewEvent builds an event for user with the given subject and parameters.
func NewEvent(user, subject string, params map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		App:        AppID,
		User:       user,
		Subject:    subject,
		Timestamp:  time.Now().UTC(),
		Parameters: params,
	}
}

// Emitter delivers events to the host notification system.
type Emitter interface {
	Notify(ctx context.Context, event Event) error
}

// LogEmitter writes events to the log, the default host boundary when no
// other delivery is wired.
type LogEmitter struct {
	Logger *zap.Logger
}

func (e *LogEmitter) Notify(_ context.Context, event Event) error {
	subject, err := RenderSubject(event)
	if err != nil {
		return err
	}

	e.Logger.Info("notification",
		zap.String("id", event.ID),
		zap.String("user", event.User),
		zap.String("subject", event.Subject),
		zap.String("content", subject),
	)

	return nil
}

// RenderSubject produces the user-facing wording for an event.
func RenderSubject(event Event) (string, error) {
	switch event.Subject {
	case "reminder":
		title, _ := event.Parameters["title"].(string)
		eventType, _ := event.Parameters["type"].(string)

		formattedDate := ""
		if ts, ok := eventTimestamp(event.Parameters); ok {
			formattedDate = time.Unix(ts, 0).UTC().Format(time.RFC1123Z)
		}

		switch eventType {
		case "Calls":
			return fmt.Sprintf("SuiteCRM call: %s, Time: %s", title, formattedDate), nil
		case "Meetings":
			return fmt.Sprintf("SuiteCRM meeting: %s, Time: %s", title, formattedDate), nil
		default:
			return fmt.Sprintf("SuiteCRM reminder: %s, Time: %s", title, formattedDate), nil
		}
	case "new_open_tickets":
		title, _ := event.Parameters["title"].(string)

		return fmt.Sprintf("SuiteCRM ticket update: %s", title), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSubject, event.Subject)
	}
}

func eventTimestamp(params map[string]any) (int64, bool) {
	switch v := params["event_timestamp"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
