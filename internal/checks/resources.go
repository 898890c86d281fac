package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/check"
	"github.com/stackwarden/stackwarden/internal/config"
	"github.com/stackwarden/stackwarden/internal/probe"
	"github.com/stackwarden/stackwarden/internal/remedy"
)

const (
	diskCheckName   = "disk"
	memoryCheckName = "memory"
)

// ResourceCheck monitors disk and memory utilization against configured
// thresholds. Disk breaches beyond the critical threshold trigger artifact
// pruning; memory pressure restarts only units tagged auxiliary, since
// restarting critical units on a speculative fix risks availability.
type ResourceCheck struct {
	logger    zerolog.Logger
	prober    probe.Prober
	pruner    DiskPruner
	restarter UnitRestarter

	diskPath   string
	diskWarn   int
	diskCrit   int
	memoryWarn int
	auxiliary  []config.Unit
}

// NewResourceCheck constructs the disk and memory threshold monitors.
func NewResourceCheck(logger zerolog.Logger, prober probe.Prober, pruner DiskPruner, restarter UnitRestarter, cfg config.Config, units []config.Unit) *ResourceCheck {
	return &ResourceCheck{
		logger:     logger,
		prober:     prober,
		pruner:     pruner,
		restarter:  restarter,
		diskPath:   cfg.DiskPath,
		diskWarn:   cfg.DiskWarnPercent,
		diskCrit:   cfg.DiskCritPercent,
		memoryWarn: cfg.MemoryWarnPercent,
		auxiliary:  config.AuxiliaryUnits(units),
	}
}

// Run reads both resources independently; a failure probing one never
// hides the other's reading.
func (c *ResourceCheck) Run(ctx context.Context) []check.Result {
	return []check.Result{
		c.checkDisk(ctx),
		c.checkMemory(ctx),
	}
}

func (c *ResourceCheck) checkDisk(ctx context.Context) check.Result {
	reading, err := c.prober.Disk(ctx, c.diskPath)
	if err != nil {
		return check.Result{
			Name:     diskCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("disk probe failed: %v", err),
		}
	}

	switch {
	case reading.PercentUsed > c.diskCrit:
		return c.remediateDisk(ctx, reading.PercentUsed)
	case reading.PercentUsed >= c.diskWarn:
		// Threshold boundary classifies into the higher tier.
		return check.Result{
			Name:     diskCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("disk usage at %d%% (warning threshold %d%%)", reading.PercentUsed, c.diskWarn),
		}
	default:
		return check.Result{
			Name:     diskCheckName,
			Severity: check.SeverityOK,
			Message:  fmt.Sprintf("disk usage at %d%%", reading.PercentUsed),
		}
	}
}

func (c *ResourceCheck) remediateDisk(ctx context.Context, percentUsed int) check.Result {
	message := fmt.Sprintf("disk usage at %d%% (critical threshold %d%%)", percentUsed, c.diskCrit)

	removed, reclaimed, err := c.pruner.PruneDisk(ctx)
	if err != nil {
		// The log sweep may have already removed files before the
		// runtime GC step failed; report what did happen.
		detail := fmt.Sprintf("prune failed: %v", err)
		if removed > 0 {
			detail = fmt.Sprintf("prune failed after removing %d files: %v", removed, err)
		}
		return check.Result{
			Name:               diskCheckName,
			Severity:           check.SeverityCritical,
			Message:            fmt.Sprintf("%s; %s", message, detail),
			RemediationApplied: removed > 0,
		}
	}

	// The post-cleanup reading is informational only; the original
	// crossing is still reported so operators see the trend.
	detail := fmt.Sprintf("pruned %d files, reclaimed %d bytes", removed, reclaimed)
	if after, err := c.prober.Disk(ctx, c.diskPath); err == nil {
		detail = fmt.Sprintf("%s, now at %d%%", detail, after.PercentUsed)
	}

	return check.Result{
		Name:               diskCheckName,
		Severity:           check.SeverityCritical,
		Message:            fmt.Sprintf("%s; %s", message, detail),
		RemediationApplied: true,
	}
}

func (c *ResourceCheck) checkMemory(ctx context.Context) check.Result {
	reading, err := c.prober.Memory(ctx)
	if err != nil {
		return check.Result{
			Name:     memoryCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("memory probe failed: %v", err),
		}
	}

	if reading.PercentUsed < c.memoryWarn {
		return check.Result{
			Name:     memoryCheckName,
			Severity: check.SeverityOK,
			Message:  fmt.Sprintf("memory usage at %d%%", reading.PercentUsed),
		}
	}

	message := fmt.Sprintf("memory usage at %d%% (warning threshold %d%%)", reading.PercentUsed, c.memoryWarn)

	if len(c.auxiliary) == 0 {
		return check.Result{
			Name:     memoryCheckName,
			Severity: check.SeverityWarning,
			Message:  message + "; no auxiliary units to restart",
		}
	}

	restarted := make([]string, 0, len(c.auxiliary))
	skipped := make([]string, 0, len(c.auxiliary))
	for _, unit := range c.auxiliary {
		if err := c.restarter.RestartUnit(ctx, unit.Name); err != nil {
			if errors.Is(err, remedy.ErrCooldown) {
				skipped = append(skipped, unit.Name)
				continue
			}
			c.logger.Warn().Err(err).Str("unit", unit.Name).Msg("auxiliary restart failed")
			skipped = append(skipped, unit.Name)
			continue
		}
		restarted = append(restarted, unit.Name)
	}

	if len(restarted) > 0 {
		message = fmt.Sprintf("%s; restarted auxiliary units: %s", message, strings.Join(restarted, ", "))
	}
	if len(skipped) > 0 {
		message = fmt.Sprintf("%s; skipped: %s", message, strings.Join(skipped, ", "))
	}

	return check.Result{
		Name:               memoryCheckName,
		Severity:           check.SeverityWarning,
		Message:            message,
		RemediationApplied: len(restarted) > 0,
	}
}
