package suitecrm

import (
	"context"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

var (
	callURLRe    = regexp.MustCompile(`module=Calls`)
	meetingURLRe = regexp.MustCompile(`module=Meetings`)
	recordURLRe  = regexp.MustCompile(`record=([a-z0-9\-]+)`)
)

// GetAlerts returns the unread alerts assigned to the connected CRM user
// whose target call or meeting starts in the future, sorted ascending by
// the linked reminder's execution date. Alerts whose redirect URL matches
// neither a call nor a meeting are dropped, as are alerts whose event or
// reminder lookup fails.
func (c *Client) GetAlerts(ctx context.Context, userID string, since *int64, limit int) ([]Alert, error) {
	cred, err := c.credential(ctx, userID)
	if err != nil {
		return nil, err
	}

	endPoint := "module/Alerts?" + encodeParams([]Param{
		{Key: "filter[assigned_user_id][eq]", Value: cred.CRMUserID},
		{Key: "filter[is_read][eq]", Value: "0"},
	})

	records, err := c.getList(ctx, userID, endPoint)
	if err != nil {
		return nil, err
	}

	tsNow := c.now().Unix()

	var ans []Alert

	for _, rec := range records {
		urlRedirect := attrString(rec.Attributes, "url_redirect")
		isCall := callURLRe.MatchString(urlRedirect)
		isMeeting := meetingURLRe.MatchString(urlRedirect)
		recordMatch := recordURLRe.FindStringSubmatch(urlRedirect)

		if (!isCall && !isMeeting) || len(recordMatch) < 2 {
			continue
		}

		module := ModuleMeetings
		kind := "meeting"

		if isCall {
			module = ModuleCalls
			kind = "call"
		}

		event, err := c.getRecord(ctx, userID, module, recordMatch[1])
		if err != nil {
			c.logger.Debug("skipping alert, event fetch failed",
				zap.String("alert", rec.ID), zap.Error(err))

			continue
		}

		dateStart := attrString(event.Attributes, "date_start")

		eventTime, ok := parseDate(dateStart)
		if !ok || eventTime.Unix() <= tsNow {
			continue
		}

		reminderID := attrString(rec.Attributes, "reminder_id")

		reminder, err := c.getRecord(ctx, userID, "Reminders", reminderID)
		if err != nil {
			c.logger.Debug("skipping alert, reminder fetch failed",
				zap.String("alert", rec.ID), zap.Error(err))

			continue
		}

		willExecute := attrInt64(reminder.Attributes, "date_willexecute")
		if willExecute == 0 {
			continue
		}

		ans = append(ans, Alert{
			ID:              rec.ID,
			Kind:            kind,
			Title:           attrString(event.Attributes, "name"),
			DateStart:       dateStart,
			DateWillExecute: willExecute,
		})
	}

	if since != nil {
		filtered := ans[:0]

		for _, a := range ans {
			if a.DateWillExecute > *since {
				filtered = append(filtered, a)
			}
		}

		ans = filtered
	}

	sort.SliceStable(ans, func(i, j int) bool {
		return ans[i].DateWillExecute < ans[j].DateWillExecute
	})

	if limit > 0 && len(ans) > limit {
		ans = ans[:limit]
	}

	return ans, nil
}
