package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// webhookPayload is the generic channel contract: a JSON object with a
// single text field.
type webhookPayload struct {
	Text string `json:"text"`
}

// WebhookNotifier posts escalation events to a generic webhook as one
// newline-separated text payload per cycle.
type WebhookNotifier struct {
	logger zerolog.Logger
	poster *httpPoster
}

// WebhookOption customizes WebhookNotifier behavior.
type WebhookOption func(*WebhookNotifier)

// WithWebhookTiming overrides timing parameters (primarily for testing).
func WithWebhookTiming(timing timingConfig) WebhookOption {
	return func(n *WebhookNotifier) {
		n.poster.timing = timing
	}
}

// NewWebhookNotifier creates a webhook notifier, or a noop notifier when
// the URL is empty (absent configuration disables notification without
// failing the run).
func NewWebhookNotifier(logger zerolog.Logger, webhookURL string, opts ...WebhookOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "webhook not configured; notifications disabled")
	}

	notifier := &WebhookNotifier{
		logger: logger,
		poster: newHTTPPoster(logger, "webhook", webhookURL, "application/json", defaultTiming),
	}

	for _, opt := range opts {
		opt(notifier)
	}

	return notifier
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	lines := make([]string, 0, len(events))
	for _, event := range events {
		lines = append(lines, event.Line())
	}

	payload, err := json.Marshal(webhookPayload{Text: strings.Join(lines, "\n")})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	if err := n.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Int("events", len(events)).
		Msg("webhook notification sent")

	return nil
}
