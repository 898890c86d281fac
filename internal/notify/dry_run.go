package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// DryRunNotifier logs events without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger) *DryRunNotifier {
	return &DryRunNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, events []Event) error {
	for _, event := range events {
		n.logger.Info().
			Str("severity", string(event.Severity)).
			Str("message", event.Message).
			Time("timestamp", event.Timestamp).
			Msg("[DRY-RUN] Would notify")
	}
	return nil
}
