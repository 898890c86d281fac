// Package checks implements the individual health checks the supervisor
// runs each cycle. Every check is pure with respect to supervisor state:
// it reads collaborators, optionally invokes remediation, and yields
// results. A failing probe is reported as a WARNING result, never as an
// error that could abort the remaining checks.
package checks

import (
	"context"
	"time"
)

// Sleeper waits for the settle delay after a remediation, honoring
// context cancellation. Injected so tests run without real waits.
type Sleeper func(ctx context.Context, d time.Duration)

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// UnitRestarter restarts a unit, subject to the restart cooldown.
type UnitRestarter interface {
	RestartUnit(ctx context.Context, name string) error
}

// DiskPruner reclaims disk space: log sweep plus runtime garbage collection.
type DiskPruner interface {
	PruneDisk(ctx context.Context) (filesRemoved int, bytesReclaimed uint64, err error)
}

// CertRenewer forces certificate renewal through the external authority.
type CertRenewer interface {
	RenewCertificate(ctx context.Context) error
}
