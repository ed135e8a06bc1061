package tasks

// Task types handled by the queue worker.
const (
	TypeCheckAlerts = "suitecrm:check_alerts"
	TypeHealthCheck = "health:check"
)

// CheckAlertsPayload is the payload of a scheduled alert sweep task. The
// sweep walks every known user, so no parameters are needed; the struct
// exists so future fields stay wire-compatible.
type CheckAlertsPayload struct{}
