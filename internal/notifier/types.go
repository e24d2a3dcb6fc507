package notifier

import "context"

// Event kinds reported by the control loop and reports.
const (
	KindSuccess = "success"
	KindFailure = "failure"
	KindQuota   = "quota"
	KindError   = "error"
	KindSummary = "summary"
	KindLog     = "log"
)

// Event is a single operator notification.
//
// Priority steers the message prefix: >=8 alert, >=5 warning, else info.
type Event struct {
	Kind     string
	Priority int
	Text     string
}

// Notifier delivers an event to one channel. Delivery is best-effort;
// implementations must never panic and should bound their own latency.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}
