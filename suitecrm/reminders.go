package suitecrm

import (
	"context"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// secondsPerDay widens the server-side upper bound: date_willexecute stores
// the event date, not the reminder one, so the window over-fetches by the
// maximum popup lead and the rest is enforced client-side.
const secondsPerDay = 60 * 60 * 24

// ReminderQuery bounds a reminder listing. Since/Until pairs are optional;
// Reminder bounds apply to the derived real reminder timestamp, Event bounds
// to the raw event date. Limit 0 means no truncation.
type ReminderQuery struct {
	ReminderSince *int64
	ReminderUntil *int64
	EventSince    *int64
	EventUntil    *int64
	Limit         int
}

// GetReminders returns the due reminders assigned to the connected CRM user,
// sorted ascending by real reminder timestamp. The raw endpoint does not
// filter by assignee, so each candidate's related event is fetched and
// checked; a failed per-item fetch excludes that reminder only.
func (c *Client) GetReminders(ctx context.Context, userID string, q ReminderQuery) ([]Reminder, error) {
	cred, err := c.credential(ctx, userID)
	if err != nil {
		return nil, err
	}

	var filters []string

	if q.ReminderSince != nil {
		filters = append(filters, "filter[date_willexecute][gt]="+strconv.FormatInt(*q.ReminderSince, 10))
	}

	if q.ReminderUntil != nil {
		filters = append(filters, "filter[date_willexecute][lt]="+strconv.FormatInt(*q.ReminderUntil+secondsPerDay, 10))
	}

	if q.EventSince != nil {
		filters = append(filters, "filter[date_willexecute][gt]="+strconv.FormatInt(*q.EventSince, 10))
	}

	if q.EventUntil != nil {
		filters = append(filters, "filter[date_willexecute][lt]="+strconv.FormatInt(*q.EventUntil, 10))
	}

	records, err := c.getList(ctx, userID, "module/Reminders?"+joinFilters(filters))
	if err != nil {
		return nil, err
	}

	var ans []Reminder

	for _, rec := range records {
		eventTs := attrInt64(rec.Attributes, "date_willexecute")
		popup := attrInt64(rec.Attributes, "timer_popup")
		realTs := eventTs - popup

		// enforce the caller's window on the derived timestamp
		if q.ReminderSince != nil && realTs <= *q.ReminderSince {
			continue
		}

		if q.ReminderUntil != nil && realTs >= *q.ReminderUntil {
			continue
		}

		module := attrString(rec.Attributes, "related_event_module")
		recordID := attrString(rec.Attributes, "related_event_module_id")

		if module == "" || recordID == "" {
			continue
		}

		event, err := c.getRecord(ctx, userID, module, recordID)
		if err != nil {
			c.logger.Debug("skipping reminder, related event fetch failed",
				zap.String("reminder", rec.ID), zap.Error(err))

			continue
		}

		if attrString(event.Attributes, "assigned_user_id") != cred.CRMUserID {
			continue
		}

		ans = append(ans, Reminder{
			ID:                    rec.ID,
			RelatedModule:         module,
			RelatedRecordID:       recordID,
			Title:                 attrString(event.Attributes, "name"),
			EventTimestamp:        eventTs,
			PopupLeadSeconds:      popup,
			RealReminderTimestamp: realTs,
		})
	}

	sort.SliceStable(ans, func(i, j int) bool {
		return ans[i].RealReminderTimestamp < ans[j].RealReminderTimestamp
	})

	if q.Limit > 0 && len(ans) > q.Limit {
		ans = ans[:q.Limit]
	}

	return ans, nil
}
