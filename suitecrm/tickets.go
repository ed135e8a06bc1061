package suitecrm

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Generation B instances (ticket-system style) expose flat JSON objects
// instead of JSON:API envelopes.

type rawNotification struct {
	ID          json.Number `json:"id"`
	TicketID    json.Number `json:"o_id"`
	Seen        bool        `json:"seen"`
	UpdatedAt   string      `json:"updated_at"`
	UpdatedByID json.Number `json:"updated_by_id"`
}

type rawTicket struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
	State string      `json:"state"`
}

type rawUser struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"firstname"`
	LastName  string      `json:"lastname"`
}

// GetNotifications returns the pending, unseen ticket notifications of the
// connected user, newer than since, enriched with ticket and updater
// details. Updater lookups are deduplicated by user id. A failed per-item
// detail fetch excludes that notification only.
func (c *Client) GetNotifications(ctx context.Context, userID string, since *int64, limit int) ([]TicketNotification, error) {
	body, err := c.Request(ctx, userID, "online_notifications", nil, http.MethodGet)
	if err != nil {
		return nil, err
	}

	var raw []rawNotification
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, newAPIError(ErrDecode, 0, "failed to decode notifications: "+err.Error(), err)
	}

	users := make(map[string]rawUser)

	var ans []TicketNotification

	for _, n := range raw {
		if n.Seen {
			continue
		}

		updatedTime, ok := parseDate(n.UpdatedAt)
		if !ok {
			continue
		}

		updatedAt := updatedTime.Unix()

		if since != nil && updatedAt <= *since {
			continue
		}

		ticket, err := c.getTicket(ctx, userID, n.TicketID.String())
		if err != nil {
			c.logger.Debug("skipping notification, ticket fetch failed",
				zap.String("notification", n.ID.String()), zap.Error(err))

			continue
		}

		updater, err := c.getTicketUser(ctx, userID, n.UpdatedByID.String(), users)
		if err != nil {
			c.logger.Debug("skipping notification, updater fetch failed",
				zap.String("notification", n.ID.String()), zap.Error(err))

			continue
		}

		ans = append(ans, TicketNotification{
			ID:            n.ID.String(),
			TicketID:      n.TicketID.String(),
			TicketTitle:   ticket.Title,
			TicketState:   ticket.State,
			UpdatedAt:     updatedAt,
			UpdatedByID:   n.UpdatedByID.String(),
			UpdatedByName: strings.TrimSpace(updater.FirstName + " " + updater.LastName),
		})
	}

	sort.SliceStable(ans, func(i, j int) bool {
		return ans[i].UpdatedAt < ans[j].UpdatedAt
	})

	if limit > 0 && len(ans) > limit {
		ans = ans[:limit]
	}

	return ans, nil
}

func (c *Client) getTicket(ctx context.Context, userID, ticketID string) (rawTicket, error) {
	body, err := c.Request(ctx, userID, "tickets/"+ticketID, nil, http.MethodGet)
	if err != nil {
		return rawTicket{}, err
	}

	var ticket rawTicket
	if err := json.Unmarshal(body, &ticket); err != nil {
		return rawTicket{}, newAPIError(ErrDecode, 0, "failed to decode ticket: "+err.Error(), err)
	}

	return ticket, nil
}

// getTicketUser fetches a ticket-system user, caching results per call batch.
func (c *Client) getTicketUser(ctx context.Context, userID, ticketUserID string, cache map[string]rawUser) (rawUser, error) {
	if cached, ok := cache[ticketUserID]; ok {
		return cached, nil
	}

	body, err := c.Request(ctx, userID, "users/"+ticketUserID, nil, http.MethodGet)
	if err != nil {
		return rawUser{}, err
	}

	var user rawUser
	if err := json.Unmarshal(body, &user); err != nil {
		return rawUser{}, newAPIError(ErrDecode, 0, "failed to decode user: "+err.Error(), err)
	}

	cache[ticketUserID] = user

	return user, nil
}
