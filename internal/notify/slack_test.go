package notify

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/check"
)

func TestBuildSlackMessages_SingleMessage(t *testing.T) {
	messages := buildSlackMessages(someEvents())

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	message := messages[0]
	if message.Text != "stackwarden: 2 unresolved condition(s)" {
		t.Fatalf("unexpected summary %q", message.Text)
	}
	// Header plus one section per event.
	if got := len(message.Blocks.BlockSet); got != 3 {
		t.Fatalf("expected 3 blocks, got %d", got)
	}
}

func TestBuildSlackMessages_ChunksAtBlockLimit(t *testing.T) {
	events := make([]Event, slackMaxEvents+5)
	for i := range events {
		events[i] = Event{
			Severity:  check.SeverityWarning,
			Message:   fmt.Sprintf("condition %d", i),
			Timestamp: time.Now(),
		}
	}

	messages := buildSlackMessages(events)

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if got := len(messages[0].Blocks.BlockSet); got != slackMaxBlocks {
		t.Fatalf("first message should fill the block limit, got %d", got)
	}
	if got := len(messages[1].Blocks.BlockSet); got != 6 {
		t.Fatalf("expected header plus 5 overflow events, got %d blocks", got)
	}
	if !strings.Contains(messages[0].Text, "(part 1/2)") || !strings.Contains(messages[1].Text, "(part 2/2)") {
		t.Fatalf("expected part annotations, got %q and %q", messages[0].Text, messages[1].Text)
	}
}

func TestBuildSlackMessages_Empty(t *testing.T) {
	if messages := buildSlackMessages(nil); messages != nil {
		t.Fatalf("expected no messages for no events, got %d", len(messages))
	}
}

func TestSeverityEmoji(t *testing.T) {
	if got := severityEmoji(check.SeverityCritical); got != ":red_circle:" {
		t.Fatalf("critical emoji: %q", got)
	}
	if got := severityEmoji(check.SeverityWarning); got != ":warning:" {
		t.Fatalf("warning emoji: %q", got)
	}
	if got := severityEmoji(check.SeverityOK); got != ":white_check_mark:" {
		t.Fatalf("ok emoji: %q", got)
	}
}

func TestNewSlackNotifier_EmptyURLIsNoop(t *testing.T) {
	notifier := NewSlackNotifier(zerolog.Nop(), "")

	if _, ok := notifier.(*NoopNotifier); !ok {
		t.Fatalf("expected NoopNotifier for empty URL, got %T", notifier)
	}
}

func TestMultiNotifier_AttemptsAllReturnsFirstError(t *testing.T) {
	first := &recordingNotifier{err: fmt.Errorf("first down")}
	second := &recordingNotifier{}

	multi := NewMultiNotifier(first, nil, second)

	err := multi.Notify(context.Background(), someEvents())
	if err == nil || err.Error() != "first down" {
		t.Fatalf("expected first error returned, got %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("every notifier must be attempted, got %d and %d", first.calls, second.calls)
	}
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Notify(context.Context, []Event) error {
	r.calls++
	return r.err
}

func TestEvent_Line(t *testing.T) {
	event := Event{Severity: check.SeverityWarning, Message: "no recent backup"}
	if got := event.Line(); got != "[WARNING] no recent backup" {
		t.Fatalf("unexpected line %q", got)
	}
}
