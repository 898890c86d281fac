package state

import (
	"testing"
	"time"
)

func TestLedger_InCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Minute

	ledger := Ledger{}
	if ledger.InCooldown("api", now, window) {
		t.Fatalf("unit never restarted must not be in cooldown")
	}

	ledger.RecordRestart("api", now.Add(-5*time.Minute))
	if !ledger.InCooldown("api", now, window) {
		t.Fatalf("restart 5m ago within a 10m window must be in cooldown")
	}

	ledger.RecordRestart("db", now.Add(-10*time.Minute))
	if ledger.InCooldown("db", now, window) {
		t.Fatalf("restart exactly a window ago must be out of cooldown")
	}

	if ledger.InCooldown("worker", now, window) {
		t.Fatalf("unknown unit must not be in cooldown")
	}
}

func TestLedger_RecordRestartOverwrites(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ledger Ledger
	ledger.RecordRestart("api", now.Add(-time.Hour))
	ledger.RecordRestart("api", now)

	if got := ledger.LastRestarts["api"]; !got.Equal(now) {
		t.Fatalf("expected latest restart time recorded, got %v", got)
	}
}
