// Package remedy implements the corrective actions checks invoke when
// thresholds are crossed. Every action is safe to invoke redundantly:
// restarting a running unit is a runtime-level no-op, pruning an empty
// target reclaims nothing, and forcing renewal of a fresh certificate is
// rejected harmlessly by the renewal authority.
package remedy

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/runtime"
	"github.com/stackwarden/stackwarden/internal/state"
)

// ErrCooldown is returned when a unit restart is suppressed because the
// unit was already restarted within the cooldown window.
var ErrCooldown = errors.New("restart suppressed by cooldown")

// ErrNotConfigured is returned when an action needs an external command
// that configuration does not supply.
var ErrNotConfigured = errors.New("remediation command not configured")

// CommandRunner executes a host command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands through os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Actions bundles the remediation operations with their collaborators.
type Actions struct {
	logger         zerolog.Logger
	runtimeClient  runtime.Client
	store          state.Store
	cooldown       time.Duration
	now            func() time.Time
	run            CommandRunner
	renewCommand   []string
	restartCommand []string
	pruneDirs      []string
	pruneRetention time.Duration
	dryRun         bool
}

// Option customizes Actions behavior.
type Option func(*Actions)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(a *Actions) {
		a.now = now
	}
}

// WithCommandRunner overrides host command execution (for tests).
func WithCommandRunner(run CommandRunner) Option {
	return func(a *Actions) {
		a.run = run
	}
}

// WithRenewCommand sets the certificate renewal command line.
func WithRenewCommand(command string) Option {
	return func(a *Actions) {
		a.renewCommand = strings.Fields(command)
	}
}

// WithRuntimeRestartCommand sets the command restarting the container
// runtime itself. Defaults to systemctl restart docker.
func WithRuntimeRestartCommand(command string) Option {
	return func(a *Actions) {
		if fields := strings.Fields(command); len(fields) > 0 {
			a.restartCommand = fields
		}
	}
}

// WithPrunePolicy sets the log directories and retention window swept by
// disk remediation.
func WithPrunePolicy(dirs []string, retention time.Duration) Option {
	return func(a *Actions) {
		a.pruneDirs = dirs
		a.pruneRetention = retention
	}
}

// WithDryRun makes every action log instead of mutating.
func WithDryRun(dryRun bool) Option {
	return func(a *Actions) {
		a.dryRun = dryRun
	}
}

// New constructs Actions over the runtime client and cooldown ledger store.
func New(logger zerolog.Logger, runtimeClient runtime.Client, store state.Store, cooldown time.Duration, opts ...Option) *Actions {
	a := &Actions{
		logger:         logger,
		runtimeClient:  runtimeClient,
		store:          store,
		cooldown:       cooldown,
		now:            time.Now,
		run:            ExecRunner,
		restartCommand: []string{"systemctl", "restart", "docker"},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RestartUnit restarts the named unit unless it was already restarted
// within the cooldown window. The cooldown ledger survives across
// invocations so repeated cycles against a stuck unit cannot storm it.
func (a *Actions) RestartUnit(ctx context.Context, name string) error {
	now := a.now()

	ledger, err := a.store.Load(ctx)
	if err != nil {
		// A broken ledger must not block remediation; worst case is one
		// restart that the cooldown would have suppressed.
		a.logger.Warn().Err(err).Msg("cooldown ledger unavailable")
		ledger = state.Ledger{}
	}

	if ledger.InCooldown(name, now, a.cooldown) {
		return fmt.Errorf("unit %s: %w", name, ErrCooldown)
	}

	if a.dryRun {
		a.logger.Info().Str("unit", name).Msg("[DRY-RUN] Would restart unit")
		return nil
	}

	if err := a.runtimeClient.Restart(ctx, name); err != nil {
		return fmt.Errorf("restart unit %s: %w", name, err)
	}

	ledger.RecordRestart(name, now)
	if err := a.store.Save(ctx, ledger); err != nil {
		a.logger.Warn().Err(err).Str("unit", name).Msg("failed to persist cooldown ledger")
	}

	a.logger.Info().Str("unit", name).Msg("unit restarted")
	return nil
}

// PruneDisk deletes artifacts older than the retention window from the
// configured log directories, then runs the runtime's own garbage
// collection. Returns files removed and runtime bytes reclaimed.
func (a *Actions) PruneDisk(ctx context.Context) (int, uint64, error) {
	if a.dryRun {
		a.logger.Info().Msg("[DRY-RUN] Would prune disk artifacts")
		return 0, 0, nil
	}

	cutoff := a.now().Add(-a.pruneRetention)
	removed, sweepErr := sweepDirs(a.pruneDirs, cutoff)
	if sweepErr != nil {
		a.logger.Warn().Err(sweepErr).Msg("log sweep incomplete")
	}

	reclaimed, err := a.runtimeClient.PruneArtifacts(ctx)
	if err != nil {
		return removed, reclaimed, fmt.Errorf("runtime prune: %w", err)
	}

	a.logger.Info().
		Int("files_removed", removed).
		Uint64("bytes_reclaimed", reclaimed).
		Msg("disk artifacts pruned")
	return removed, reclaimed, nil
}

// RenewCertificate forces renewal through the configured external
// authority command.
func (a *Actions) RenewCertificate(ctx context.Context) error {
	if len(a.renewCommand) == 0 {
		return ErrNotConfigured
	}

	if a.dryRun {
		a.logger.Info().Strs("command", a.renewCommand).Msg("[DRY-RUN] Would force certificate renewal")
		return nil
	}

	output, err := a.run(ctx, a.renewCommand[0], a.renewCommand[1:]...)
	if err != nil {
		return fmt.Errorf("renew certificate: %w (%s)", err, firstLine(output))
	}

	a.logger.Info().Msg("certificate renewal forced")
	return nil
}

// RestartRuntime restarts the container runtime itself.
func (a *Actions) RestartRuntime(ctx context.Context) error {
	if a.dryRun {
		a.logger.Info().Strs("command", a.restartCommand).Msg("[DRY-RUN] Would restart container runtime")
		return nil
	}

	output, err := a.run(ctx, a.restartCommand[0], a.restartCommand[1:]...)
	if err != nil {
		return fmt.Errorf("restart runtime: %w (%s)", err, firstLine(output))
	}

	a.logger.Info().Msg("container runtime restarted")
	return nil
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if text == "" {
		return "no output"
	}
	return text
}
