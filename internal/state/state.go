package state

import (
	"context"
	"time"
)

// Ledger records when remediation last touched each unit, so repeated
// invocations cannot issue restart storms against a unit that stays
// unhealthy. It is the only state carried across invocations; check
// results themselves are never persisted.
type Ledger struct {
	// LastRestarts maps unit name to the time of the last restart issued
	// by a remediation action.
	LastRestarts map[string]time.Time `json:"last_restarts"`
}

// InCooldown reports whether the unit was restarted within the window.
func (l Ledger) InCooldown(unit string, now time.Time, window time.Duration) bool {
	last, ok := l.LastRestarts[unit]
	if !ok {
		return false
	}
	return now.Sub(last) < window
}

// RecordRestart marks the unit as restarted at the given time.
func (l *Ledger) RecordRestart(unit string, when time.Time) {
	if l.LastRestarts == nil {
		l.LastRestarts = map[string]time.Time{}
	}
	l.LastRestarts[unit] = when
}

// Store defines the interface for persisting the ledger.
type Store interface {
	Load(ctx context.Context) (Ledger, error)
	Save(ctx context.Context, ledger Ledger) error
}
