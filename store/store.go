// Package store defines the configuration store boundary: per-user and
// app-wide key/value settings backed by sqlite, postgres or memory.
package store

import (
	"context"
	"errors"
)

// Keys used for per-user values.
const (
	KeyToken               = "token"
	KeyRefreshToken        = "refresh_token"
	KeyUserID              = "user_id"
	KeyUserName            = "user_name"
	KeyLastReminderCheck   = "last_reminder_check"
	KeyLastOpenCheck       = "last_open_check"
	KeySearchEnabled       = "search_enabled"
	KeyNotificationEnabled = "notification_enabled"
)

// Keys used for app-wide values.
const (
	KeyClientID         = "client_id"
	KeyClientSecret     = "client_secret"
	KeyOauthInstanceURL = "oauth_instance_url"
	KeyAPIFlavor        = "api_flavor"
)

var ErrNotFound = errors.New("not found")

// Store holds per-user and app-wide configuration values.
// Missing keys are not an error: Get methods return the provided default.
type Store interface {
	GetUserValue(ctx context.Context, userID, key, def string) (string, error)
	SetUserValue(ctx context.Context, userID, key, value string) error
	GetAppValue(ctx context.Context, key, def string) (string, error)
	SetAppValue(ctx context.Context, key, value string) error
	// ListUsers returns the ids of all users that have at least one stored value.
	ListUsers(ctx context.Context) ([]string, error)
	Close() error
}
