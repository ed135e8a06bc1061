package suitecrm

import (
	"context"

	"github.com/julien-nc/integration-suitecrm/store"
)

// Flavor selects which notification mechanism an instance exposes.
type Flavor string

const (
	// FlavorAlerts is the V8-style Alerts generation.
	FlavorAlerts Flavor = "alerts"
	// FlavorTickets is the ticket-system style generation.
	FlavorTickets Flavor = "tickets"
)

// Notification subjects emitted to the host.
const (
	SubjectReminder       = "reminder"
	SubjectNewOpenTickets = "new_open_tickets"
)

// DueItem is one newly-due item produced by an AlertFeed, uniform across
// both API generations.
type DueItem struct {
	Subject        string
	Timestamp      int64
	Module         string
	RecordID       string
	Title          string
	EventTimestamp int64
	Link           string
}

// AlertFeed abstracts the two notification mechanisms behind one contract:
// items due in (since, until], plus the store key holding the per-user scan
// watermark.
type AlertFeed interface {
	Due(ctx context.Context, userID string, since, until int64) ([]DueItem, error)
	WatermarkKey() string
}

// AlertFeed returns the feed matching the configured API flavor. Unknown
// values fall back to the Alerts generation.
func (c *Client) AlertFeed(flavor Flavor) AlertFeed {
	if flavor == FlavorTickets {
		return &ticketFeed{client: c}
	}

	return &reminderFeed{client: c}
}

// InstanceFlavor reads the configured flavor from the store.
func InstanceFlavor(ctx context.Context, st store.Store) Flavor {
	val, err := st.GetAppValue(ctx, store.KeyAPIFlavor, string(FlavorAlerts))
	if err != nil {
		return FlavorAlerts
	}

	return Flavor(val)
}

type reminderFeed struct {
	client *Client
}

func (f *reminderFeed) WatermarkKey() string {
	return store.KeyLastReminderCheck
}

func (f *reminderFeed) Due(ctx context.Context, userID string, since, until int64) ([]DueItem, error) {
	reminders, err := f.client.GetReminders(ctx, userID, ReminderQuery{
		ReminderSince: &since,
		ReminderUntil: &until,
	})
	if err != nil {
		return nil, err
	}

	cred, err := f.client.credential(ctx, userID)
	if err != nil {
		return nil, err
	}

	ans := make([]DueItem, 0, len(reminders))

	for _, r := range reminders {
		ans = append(ans, DueItem{
			Subject:        SubjectReminder,
			Timestamp:      r.RealReminderTimestamp,
			Module:         r.RelatedModule,
			RecordID:       r.RelatedRecordID,
			Title:          r.Title,
			EventTimestamp: r.EventTimestamp,
			Link:           cred.InstanceURL + "/index.php?module=" + r.RelatedModule + "&action=DetailView&record=" + r.RelatedRecordID,
		})
	}

	return ans, nil
}

type ticketFeed struct {
	client *Client
}

func (f *ticketFeed) WatermarkKey() string {
	return store.KeyLastOpenCheck
}

func (f *ticketFeed) Due(ctx context.Context, userID string, since, _ int64) ([]DueItem, error) {
	notifications, err := f.client.GetNotifications(ctx, userID, &since, 0)
	if err != nil {
		return nil, err
	}

	cred, err := f.client.credential(ctx, userID)
	if err != nil {
		return nil, err
	}

	ans := make([]DueItem, 0, len(notifications))

	for _, n := range notifications {
		ans = append(ans, DueItem{
			Subject:        SubjectNewOpenTickets,
			Timestamp:      n.UpdatedAt,
			Module:         "Tickets",
			RecordID:       n.TicketID,
			Title:          n.TicketTitle,
			EventTimestamp: n.UpdatedAt,
			Link:           cred.InstanceURL + "/ticket/" + n.TicketID,
		})
	}

	return ans, nil
}
