package checks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/check"
	"github.com/stackwarden/stackwarden/internal/config"
	"github.com/stackwarden/stackwarden/internal/remedy"
)

const connectivityCheckName = "connectivity"

// ConnectivityCheck performs an end-to-end request against the
// deployment's public health endpoint. On failure it restarts the
// application tier and edge proxy, waits the settle delay, and re-probes
// exactly once. A recovery is downgraded to WARNING rather than silent
// OK because a transient full outage is operationally significant; a
// second failure is the subsystem's highest-priority escalation.
type ConnectivityCheck struct {
	logger     zerolog.Logger
	httpClient *http.Client
	url        string
	restarter  UnitRestarter
	appTier    []config.Unit
	settle     time.Duration
	sleep      Sleeper
}

// NewConnectivityCheck constructs the end-to-end probe. The HTTP client
// carries the bounded probe timeout; retries are handled by the
// restart-and-reprobe cycle, not the transport.
func NewConnectivityCheck(logger zerolog.Logger, cfg config.Config, restarter UnitRestarter, units []config.Unit, sleep Sleeper) *ConnectivityCheck {
	if sleep == nil {
		sleep = Sleep
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: cfg.ProbeTimeout}

	return &ConnectivityCheck{
		logger:     logger,
		httpClient: client.StandardClient(),
		url:        cfg.HealthURL,
		restarter:  restarter,
		appTier:    config.AppTierUnits(units),
		settle:     cfg.SettleDelay,
		sleep:      sleep,
	}
}

// Run probes the health endpoint, remediating once on failure.
func (c *ConnectivityCheck) Run(ctx context.Context) []check.Result {
	return []check.Result{c.probeAndRemediate(ctx)}
}

func (c *ConnectivityCheck) probeAndRemediate(ctx context.Context) check.Result {
	firstErr := c.probe(ctx)
	if firstErr == nil {
		return check.Result{
			Name:     connectivityCheckName,
			Severity: check.SeverityOK,
			Message:  "health endpoint reachable",
		}
	}

	restarted := c.restartAppTier(ctx)
	c.sleep(ctx, c.settle)

	if secondErr := c.probe(ctx); secondErr != nil {
		return check.Result{
			Name:               connectivityCheckName,
			Severity:           check.SeverityCritical,
			Message:            fmt.Sprintf("health endpoint still unhealthy after restart: %v", secondErr),
			RemediationApplied: restarted,
		}
	}

	return check.Result{
		Name:               connectivityCheckName,
		Severity:           check.SeverityWarning,
		Message:            fmt.Sprintf("health endpoint recovered after restart (initial failure: %v)", firstErr),
		RemediationApplied: restarted,
	}
}

func (c *ConnectivityCheck) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health endpoint returned %s", resp.Status)
	}
	return nil
}

func (c *ConnectivityCheck) restartAppTier(ctx context.Context) bool {
	restarted := false
	skipped := make([]string, 0, len(c.appTier))
	for _, unit := range c.appTier {
		if err := c.restarter.RestartUnit(ctx, unit.Name); err != nil {
			if errors.Is(err, remedy.ErrCooldown) {
				skipped = append(skipped, unit.Name)
				continue
			}
			c.logger.Warn().Err(err).Str("unit", unit.Name).Msg("app-tier restart failed")
			continue
		}
		restarted = true
	}
	if len(skipped) > 0 {
		c.logger.Info().Str("units", strings.Join(skipped, ", ")).Msg("app-tier restarts suppressed by cooldown")
	}
	return restarted
}
