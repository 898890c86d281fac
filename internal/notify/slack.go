package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/stackwarden/stackwarden/internal/check"
)

const (
	slackMaxBlocks = 50
	// slackReservedBlocks accounts for the header block in each message
	slackReservedBlocks = 1
	slackMaxEvents      = slackMaxBlocks - slackReservedBlocks
)

// SlackNotifier posts escalation events to a Slack incoming webhook as
// block-formatted messages.
type SlackNotifier struct {
	logger     zerolog.Logger
	webhookURL string
	timing     timingConfig
	poster     *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the
// webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; notifications disabled")
	}

	notifier := &SlackNotifier{
		logger:     logger,
		webhookURL: webhookURL,
		timing:     defaultTiming,
	}

	for _, opt := range opts {
		opt(notifier)
	}

	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	messages := buildSlackMessages(events)
	for _, message := range messages {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.postWithRetry(ctx, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Int("events", len(events)).
		Int("messages", len(messages)).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessages(events []Event) []slack.WebhookMessage {
	if len(events) == 0 {
		return nil
	}

	total := len(events)
	chunkTotal := (total + slackMaxEvents - 1) / slackMaxEvents
	messages := make([]slack.WebhookMessage, 0, chunkTotal)

	for i := 0; i < total; i += slackMaxEvents {
		end := i + slackMaxEvents
		if end > total {
			end = total
		}
		partIndex := (i / slackMaxEvents) + 1
		messages = append(messages, buildSlackMessage(events[i:end], total, partIndex, chunkTotal))
	}
	return messages
}

func buildSlackMessage(events []Event, total int, partIndex int, partTotal int) slack.WebhookMessage {
	summary := fmt.Sprintf("stackwarden: %d unresolved condition(s)", total)
	if partTotal > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, partIndex, partTotal)
	}
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))

	blocks := []slack.Block{header}
	for _, event := range events {
		blocks = append(blocks, buildEventBlock(event))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildEventBlock(event Event) slack.Block {
	text := fmt.Sprintf("%s *%s* %s", severityEmoji(event.Severity), event.Severity, event.Message)
	body := slack.NewTextBlockObject("mrkdwn", text, false, false)
	return slack.NewSectionBlock(body, nil, nil)
}

func severityEmoji(severity check.Severity) string {
	switch severity {
	case check.SeverityCritical:
		return ":red_circle:"
	case check.SeverityWarning:
		return ":warning:"
	default:
		return ":white_check_mark:"
	}
}
