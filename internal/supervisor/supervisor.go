// Package supervisor orchestrates one supervision cycle: the runtime
// gate, the fixed-order checks, result aggregation and escalation. It
// holds no state of its own between invocations; a fresh process handles
// the next cycle with nothing retained beyond the log output and the
// remediation cooldown ledger.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/check"
	"github.com/stackwarden/stackwarden/internal/checks"
	"github.com/stackwarden/stackwarden/internal/metrics"
	"github.com/stackwarden/stackwarden/internal/notify"
	"github.com/stackwarden/stackwarden/internal/runtime"
)

const runtimeCheckName = "runtime"

// Checker is a single health check producing results for one cycle.
type Checker interface {
	Run(ctx context.Context) []check.Result
}

// RuntimeRestarter restarts the container runtime itself.
type RuntimeRestarter interface {
	RestartRuntime(ctx context.Context) error
}

// Supervisor runs the supervision cycle over injected collaborators.
type Supervisor struct {
	logger           zerolog.Logger
	runtimeClient    runtime.Client
	runtimeRestarter RuntimeRestarter
	checkers         []Checker
	notifier         notify.Notifier
	collectors       *metrics.Metrics
	settle           time.Duration
	sleep            checks.Sleeper
	now              func() time.Time
}

// Option customizes supervisor behavior.
type Option func(*Supervisor)

// WithCheckers sets the checks run after the runtime gate, in order.
func WithCheckers(checkers ...Checker) Option {
	return func(s *Supervisor) {
		s.checkers = checkers
	}
}

// WithNotifier sets the escalation channel.
func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Supervisor) {
		s.notifier = notifier
	}
}

// WithRuntimeRestarter sets the action used when the runtime gate fails.
func WithRuntimeRestarter(restarter RuntimeRestarter) Option {
	return func(s *Supervisor) {
		s.runtimeRestarter = restarter
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(collectors *metrics.Metrics) Option {
	return func(s *Supervisor) {
		s.collectors = collectors
	}
}

// WithSleeper overrides settle-delay waits (for tests).
func WithSleeper(sleep checks.Sleeper) Option {
	return func(s *Supervisor) {
		s.sleep = sleep
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		s.now = now
	}
}

// New constructs a Supervisor around the runtime client.
func New(logger zerolog.Logger, runtimeClient runtime.Client, settle time.Duration, opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:        logger,
		runtimeClient: runtimeClient,
		settle:        settle,
		sleep:         checks.Sleep,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewNoop(logger, "")
	}
	return s
}

// RunCycle executes one full supervision pass and returns every result.
// A dead container runtime short-circuits the cycle: it is restarted and
// the remaining checks are deferred to the next invocation rather than
// cascading false positives from every dependent check.
func (s *Supervisor) RunCycle(ctx context.Context) []check.Result {
	started := s.now()

	results := s.run(ctx)

	for _, result := range results {
		result.LogTo(s.logger)
		s.collectors.SetCheckResult(result.Name, string(result.Severity))
		if result.RemediationApplied {
			s.collectors.IncRemediation(result.Name)
		}
	}

	s.escalate(ctx, results)

	finished := s.now()
	s.collectors.ObserveCycleDuration(finished.Sub(started))
	s.collectors.SetLastCycleTimestamp(finished)

	s.logger.Info().
		Int("checks", len(results)).
		Dur("duration", finished.Sub(started)).
		Msg("supervision cycle complete")

	return results
}

func (s *Supervisor) run(ctx context.Context) []check.Result {
	if gate, ok := s.runtimeGate(ctx); !ok {
		return []check.Result{gate}
	}

	var results []check.Result
	for _, checker := range s.checkers {
		results = append(results, checker.Run(ctx)...)
	}
	return results
}

// runtimeGate verifies the container runtime is reachable. On failure it
// restarts the runtime, waits the settle delay and pings once more; the
// cycle proceeds only when the first ping succeeds.
func (s *Supervisor) runtimeGate(ctx context.Context) (check.Result, bool) {
	err := s.runtimeClient.Ping(ctx)
	if err == nil {
		return check.Result{}, true
	}
	s.logger.Error().Err(err).Msg("container runtime unreachable")

	restarted := false
	if s.runtimeRestarter != nil {
		if err := s.runtimeRestarter.RestartRuntime(ctx); err != nil {
			s.logger.Error().Err(err).Msg("container runtime restart failed")
		} else {
			restarted = true
		}
	}

	s.sleep(ctx, s.settle)

	if err := s.runtimeClient.Ping(ctx); err != nil {
		return check.Result{
			Name:               runtimeCheckName,
			Severity:           check.SeverityCritical,
			Message:            "container runtime still down after restart",
			RemediationApplied: restarted,
		}, false
	}

	return check.Result{
		Name:               runtimeCheckName,
		Severity:           check.SeverityWarning,
		Message:            "container runtime restarted; remaining checks deferred to next invocation",
		RemediationApplied: restarted,
	}, false
}

// escalate hands every WARNING/CRITICAL result to the notifier. The
// connectivity escalation is placed first so it always reaches the
// channel even if a later payload is cut short by rate policy. Delivery
// failures are logged and dropped; the next invocation re-evaluates and
// re-notifies any condition that persists.
func (s *Supervisor) escalate(ctx context.Context, results []check.Result) {
	timestamp := s.now()

	var events []notify.Event
	for _, result := range results {
		if !result.Escalates() {
			continue
		}
		event := notify.Event{
			Severity:  result.Severity,
			Message:   result.Message,
			Timestamp: timestamp,
		}
		if result.Name == "connectivity" && result.Severity == check.SeverityCritical {
			events = append([]notify.Event{event}, events...)
			continue
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return
	}

	if err := s.notifier.Notify(ctx, events); err != nil {
		s.collectors.IncNotifyFailure()
		s.logger.Error().Err(err).Msg("notification delivery failed")
	}
}
