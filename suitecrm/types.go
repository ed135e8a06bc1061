package suitecrm

import (
	"encoding/json"
	"strconv"
	"time"
)

// Event modules returned by the reminder and alert endpoints.
const (
	ModuleCalls    = "Calls"
	ModuleMeetings = "Meetings"
)

// Credential is a per-call snapshot of everything needed to talk to one
// instance on behalf of one user. The access/refresh token pair is replaced
// atomically whenever a refresh succeeds.
type Credential struct {
	InstanceURL  string
	ClientID     string
	ClientSecret string
	UserID       string
	CRMUserID    string
	AccessToken  string
	RefreshToken string
}

// TokenPair is the result of a successful token exchange. A response missing
// either token is treated as a failed exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RemoteRecord is an opaque JSON:API record as returned by the V8 API.
type RemoteRecord struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

type recordList struct {
	Data []RemoteRecord `json:"data"`
}

type singleRecord struct {
	Data RemoteRecord `json:"data"`
}

// Reminder is a due reminder derived from a raw Reminders entry. It exists
// only transiently, computed per request.
type Reminder struct {
	ID                    string `json:"id"`
	RelatedModule         string `json:"related_module"`
	RelatedRecordID       string `json:"related_record_id"`
	Title                 string `json:"title"`
	EventTimestamp        int64  `json:"event_timestamp"`
	PopupLeadSeconds      int64  `json:"popup_lead_seconds"`
	RealReminderTimestamp int64  `json:"real_reminder_timestamp"`
}

// Alert is an unread future alert derived from the V8 Alerts endpoint.
type Alert struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"` // "call" or "meeting"
	Title           string `json:"title"`
	DateStart       string `json:"date_start"`
	DateWillExecute int64  `json:"date_willexecute"`
}

// TicketNotification is a pending, unseen notification from a ticket-system
// style instance, merged with its ticket and updater details.
type TicketNotification struct {
	ID            string `json:"id"`
	TicketID      string `json:"ticket_id"`
	TicketTitle   string `json:"ticket_title"`
	TicketState   string `json:"ticket_state"`
	UpdatedAt     int64  `json:"updated_at"`
	UpdatedByID   string `json:"updated_by_id"`
	UpdatedByName string `json:"updated_by_name"`
}

// SearchHit is one formatted federated search result.
type SearchHit struct {
	SourceType  string `json:"type"`
	DisplayName string `json:"name"`
	Subline     string `json:"subline"`
	DeepLink    string `json:"link"`
}

func attrString(attrs map[string]any, key string) string {
	val, ok := attrs[key]
	if !ok {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// attrInt64 reads a numeric attribute that the API may serialize as either
// a number or a string.
func attrInt64(attrs map[string]any, key string) int64 {
	val, ok := attrs[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}

		return n
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}

		return n
	default:
		return 0
	}
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate parses the date formats the API is known to emit.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
