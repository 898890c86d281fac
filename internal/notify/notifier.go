package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/stackwarden/stackwarden/internal/check"
)

// Event is a single escalation handed to the notifier: a check result
// that stayed WARNING or CRITICAL after remediation was attempted or
// judged inapplicable. Events have no retry queue; a failed delivery is
// logged and dropped, and the next invocation re-evaluates the condition.
type Event struct {
	Severity  check.Severity
	Message   string
	Timestamp time.Time
}

// Line renders the event as the single-line, severity-prefixed form
// delivered to operators.
func (e Event) Line() string {
	return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
}

// Notifier delivers escalation events to an external channel.
// Implementations must be best-effort: bounded timeouts, no indefinite
// blocking, errors reported to the caller for logging only.
type Notifier interface {
	Notify(ctx context.Context, events []Event) error
}
