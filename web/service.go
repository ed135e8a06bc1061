// Package web exposes the integration over HTTP for the hosting
// application: connect/configure endpoints plus reminder, notification,
// search and avatar lookups.
package web

import (
	"context"

	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
)

// Service bundles the API client and the configuration store for handlers.
type Service struct {
	client *suitecrm.Client
	store  store.Store
}

func NewService(client *suitecrm.Client, st store.Store) *Service {
	return &Service{
		client: client,
		store:  st,
	}
}

func (s *Service) Connect(ctx context.Context, userID, login, password string) (string, error) {
	return s.client.Connect(ctx, userID, login, password)
}

func (s *Service) Disconnect(ctx context.Context, userID string) error {
	return s.client.Disconnect(ctx, userID)
}

// SetUserConfig stores user values. Clearing user_name disconnects the user.
func (s *Service) SetUserConfig(ctx context.Context, userID string, values map[string]string) (bool, error) {
	for key, value := range values {
		if err := s.store.SetUserValue(ctx, userID, key, value); err != nil {
			return false, err
		}
	}

	if name, ok := values[store.KeyUserName]; ok && name == "" {
		if err := s.Disconnect(ctx, userID); err != nil {
			return false, err
		}

		return true, nil
	}

	return false, nil
}

func (s *Service) SetAdminConfig(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if err := s.store.SetAppValue(ctx, key, value); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) Reminders(ctx context.Context, userID string, q suitecrm.ReminderQuery) ([]suitecrm.Reminder, error) {
	return s.client.GetReminders(ctx, userID, q)
}

// Notifications dispatches to the generation configured for the instance.
func (s *Service) Notifications(ctx context.Context, userID string, since *int64, limit int) (any, error) {
	if suitecrm.InstanceFlavor(ctx, s.store) == suitecrm.FlavorTickets {
		return s.client.GetNotifications(ctx, userID, since, limit)
	}

	return s.client.GetAlerts(ctx, userID, since, limit)
}

// SearchEnabled reports whether the user opted into unified search and has
// a stored token.
func (s *Service) SearchEnabled(ctx context.Context, userID string) (bool, error) {
	enabled, err := s.store.GetUserValue(ctx, userID, store.KeySearchEnabled, "0")
	if err != nil {
		return false, err
	}

	token, err := s.store.GetUserValue(ctx, userID, store.KeyToken, "")
	if err != nil {
		return false, err
	}

	return enabled == "1" && token != "", nil
}

func (s *Service) Search(ctx context.Context, userID, query string, offset, limit int) ([]suitecrm.SearchHit, error) {
	return s.client.Search(ctx, userID, query, offset, limit)
}

func (s *Service) Avatar(ctx context.Context, userID, crmUserID string) ([]byte, error) {
	return s.client.GetAvatar(ctx, userID, crmUserID)
}

func (s *Service) InstanceURL(ctx context.Context) (string, error) {
	return s.store.GetAppValue(ctx, store.KeyOauthInstanceURL, "")
}
