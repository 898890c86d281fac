package checks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/check"
	"github.com/stackwarden/stackwarden/internal/config"
	"github.com/stackwarden/stackwarden/internal/remedy"
	"github.com/stackwarden/stackwarden/internal/runtime"
)

// LivenessCheck verifies each configured unit is running and, where the
// runtime exposes a health probe, that the probe reports healthy. A unit
// found down or unhealthy is restarted once per cycle; after the settle
// delay its state is re-read exactly once, then the outcome is reported.
type LivenessCheck struct {
	logger    zerolog.Logger
	client    runtime.Client
	restarter UnitRestarter
	units     []config.Unit
	settle    time.Duration
	sleep     Sleeper
}

// NewLivenessCheck constructs the per-unit liveness check.
func NewLivenessCheck(logger zerolog.Logger, client runtime.Client, restarter UnitRestarter, units []config.Unit, settle time.Duration, sleep Sleeper) *LivenessCheck {
	if sleep == nil {
		sleep = Sleep
	}
	return &LivenessCheck{
		logger:    logger,
		client:    client,
		restarter: restarter,
		units:     units,
		settle:    settle,
		sleep:     sleep,
	}
}

// Run checks every configured unit in order.
func (c *LivenessCheck) Run(ctx context.Context) []check.Result {
	results := make([]check.Result, 0, len(c.units))
	for _, unit := range c.units {
		results = append(results, c.checkUnit(ctx, unit))
	}
	return results
}

func (c *LivenessCheck) checkUnit(ctx context.Context, unit config.Unit) check.Result {
	name := fmt.Sprintf("unit:%s", unit.Name)

	state, err := c.client.UnitStatus(ctx, unit.Name)
	if err != nil {
		return check.Result{
			Name:     name,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("liveness probe for unit %s failed: %v", unit.Name, err),
		}
	}

	switch {
	case state.Liveness == runtime.LivenessDown:
		return c.remediateDown(ctx, unit, name)
	case state.Liveness == runtime.LivenessUp && state.Health == runtime.HealthUnhealthy:
		return c.remediateUnhealthy(ctx, unit, name)
	case state.Liveness == runtime.LivenessUnknown:
		return check.Result{
			Name:     name,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("unit %s liveness unknown", unit.Name),
		}
	default:
		return check.Result{
			Name:     name,
			Severity: check.SeverityOK,
			Message:  fmt.Sprintf("unit %s is running", unit.Name),
		}
	}
}

func (c *LivenessCheck) remediateDown(ctx context.Context, unit config.Unit, name string) check.Result {
	if err := c.restarter.RestartUnit(ctx, unit.Name); err != nil {
		if errors.Is(err, remedy.ErrCooldown) {
			return check.Result{
				Name:     name,
				Severity: check.SeverityCritical,
				Message:  fmt.Sprintf("unit %s is down; restart suppressed by cooldown", unit.Name),
			}
		}
		return check.Result{
			Name:     name,
			Severity: check.SeverityCritical,
			Message:  fmt.Sprintf("unit %s is down; restart failed: %v", unit.Name, err),
		}
	}

	c.sleep(ctx, c.settle)

	// Exactly one re-read after remediation; anything beyond that is the
	// next invocation's job.
	state, err := c.client.UnitStatus(ctx, unit.Name)
	if err != nil {
		return check.Result{
			Name:               name,
			Severity:           check.SeverityCritical,
			Message:            fmt.Sprintf("unit %s was down; state unreadable after restart: %v", unit.Name, err),
			RemediationApplied: true,
		}
	}
	if state.Liveness == runtime.LivenessUp {
		return check.Result{
			Name:               name,
			Severity:           check.SeverityCritical,
			Message:            fmt.Sprintf("unit %s was down; recovered after restart", unit.Name),
			RemediationApplied: true,
		}
	}
	return check.Result{
		Name:               name,
		Severity:           check.SeverityCritical,
		Message:            fmt.Sprintf("unit %s still down after restart", unit.Name),
		RemediationApplied: true,
	}
}

func (c *LivenessCheck) remediateUnhealthy(ctx context.Context, unit config.Unit, name string) check.Result {
	if err := c.restarter.RestartUnit(ctx, unit.Name); err != nil {
		if errors.Is(err, remedy.ErrCooldown) {
			return check.Result{
				Name:     name,
				Severity: check.SeverityWarning,
				Message:  fmt.Sprintf("unit %s is unhealthy; restart suppressed by cooldown", unit.Name),
			}
		}
		return check.Result{
			Name:     name,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("unit %s is unhealthy; restart failed: %v", unit.Name, err),
		}
	}

	c.sleep(ctx, c.settle)

	state, err := c.client.UnitStatus(ctx, unit.Name)
	if err != nil {
		return check.Result{
			Name:               name,
			Severity:           check.SeverityWarning,
			Message:            fmt.Sprintf("unit %s was unhealthy; state unreadable after restart: %v", unit.Name, err),
			RemediationApplied: true,
		}
	}
	if state.Liveness == runtime.LivenessUp && state.Health != runtime.HealthUnhealthy {
		return check.Result{
			Name:               name,
			Severity:           check.SeverityWarning,
			Message:            fmt.Sprintf("unit %s was unhealthy; healthy after restart", unit.Name),
			RemediationApplied: true,
		}
	}
	return check.Result{
		Name:               name,
		Severity:           check.SeverityWarning,
		Message:            fmt.Sprintf("unit %s still unhealthy after restart", unit.Name),
		RemediationApplied: true,
	}
}
