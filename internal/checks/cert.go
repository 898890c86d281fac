package checks

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/check"
	"github.com/stackwarden/stackwarden/internal/config"
	"github.com/stackwarden/stackwarden/internal/remedy"
)

const certCheckName = "certificate"

// CertCheck inspects the deployment certificate's expiry. Days remaining
// classify into healthy (>= warn threshold), warning, and urgent
// (< urgent threshold or already expired); only the urgent tier forces
// renewal, since the normal renewal automation is expected to handle the
// warning window on its own schedule.
type CertCheck struct {
	logger     zerolog.Logger
	path       string
	warnDays   int
	urgentDays int
	renewer    CertRenewer
	restarter  UnitRestarter
	edgeProxy  []config.Unit
	now        func() time.Time
}

// NewCertCheck constructs the certificate inspector.
func NewCertCheck(logger zerolog.Logger, cfg config.Config, renewer CertRenewer, restarter UnitRestarter, units []config.Unit, now func() time.Time) *CertCheck {
	if now == nil {
		now = time.Now
	}
	return &CertCheck{
		logger:     logger,
		path:       cfg.CertPath,
		warnDays:   cfg.CertWarnDays,
		urgentDays: cfg.CertUrgentDays,
		renewer:    renewer,
		restarter:  restarter,
		edgeProxy:  config.EdgeProxyUnits(units),
		now:        now,
	}
}

// Run inspects the certificate; it always yields a result, never an
// unhandled error.
func (c *CertCheck) Run(ctx context.Context) []check.Result {
	return []check.Result{c.inspect(ctx)}
}

func (c *CertCheck) inspect(ctx context.Context) check.Result {
	days, err := daysRemaining(c.path, c.now())
	if err != nil {
		return check.Result{
			Name:     certCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("certificate inspection failed: %v", err),
		}
	}

	switch {
	case days >= c.warnDays:
		return check.Result{
			Name:     certCheckName,
			Severity: check.SeverityOK,
			Message:  fmt.Sprintf("certificate valid for %d days", days),
		}
	case days >= c.urgentDays:
		return check.Result{
			Name:     certCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("certificate expires in %d days", days),
		}
	default:
		return c.remediateUrgent(ctx, days)
	}
}

func (c *CertCheck) remediateUrgent(ctx context.Context, days int) check.Result {
	message := fmt.Sprintf("certificate expires in %d days", days)
	if days < 0 {
		message = fmt.Sprintf("certificate expired %d days ago", -days)
	}

	if err := c.renewer.RenewCertificate(ctx); err != nil {
		detail := err.Error()
		if errors.Is(err, remedy.ErrNotConfigured) {
			detail = "renewal not configured"
		}
		return check.Result{
			Name:     certCheckName,
			Severity: check.SeverityCritical,
			Message:  fmt.Sprintf("%s; forced renewal failed: %s", message, detail),
		}
	}

	reloaded := c.reloadEdgeProxy(ctx)
	detail := "forced renewal succeeded"
	if len(reloaded) > 0 {
		detail = fmt.Sprintf("%s, reloaded %s", detail, strings.Join(reloaded, ", "))
	}

	return check.Result{
		Name:               certCheckName,
		Severity:           check.SeverityCritical,
		Message:            fmt.Sprintf("%s; %s", message, detail),
		RemediationApplied: true,
	}
}

// reloadEdgeProxy restarts the proxy units so they pick up the renewed
// certificate. Cooldown does not apply here: a proxy serving an expired
// certificate is worse than an extra restart.
func (c *CertCheck) reloadEdgeProxy(ctx context.Context) []string {
	reloaded := make([]string, 0, len(c.edgeProxy))
	for _, unit := range c.edgeProxy {
		if err := c.restarter.RestartUnit(ctx, unit.Name); err != nil && !errors.Is(err, remedy.ErrCooldown) {
			c.logger.Warn().Err(err).Str("unit", unit.Name).Msg("edge proxy reload failed")
			continue
		}
		reloaded = append(reloaded, unit.Name)
	}
	return reloaded
}

// daysRemaining parses the PEM certificate at path and computes whole
// days until expiry, negative if already expired.
func daysRemaining(path string, now time.Time) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read certificate: %w", err)
	}

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return 0, errors.New("no certificate block in PEM data")
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return 0, fmt.Errorf("parse certificate: %w", err)
		}
		return int(cert.NotAfter.Sub(now).Hours() / 24), nil
	}
}
