package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.json")
	store := NewFileStore(path, zerolog.Nop())
	ctx := context.Background()

	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ledger Ledger
	ledger.RecordRestart("api", when)

	if err := store.Save(ctx, ledger); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := loaded.LastRestarts["api"]; !got.Equal(when) {
		t.Fatalf("expected restart time %v, got %v", when, got)
	}
}

func TestFileStore_MissingFileStartsFresh(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop())

	ledger, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("missing file must not fail the load: %v", err)
	}
	if ledger.LastRestarts == nil {
		t.Fatalf("expected initialized map")
	}
	if len(ledger.LastRestarts) != 0 {
		t.Fatalf("expected empty ledger, got %v", ledger.LastRestarts)
	}
}

func TestFileStore_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store := NewFileStore(path, zerolog.Nop())

	ledger, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("corrupt file must not fail the load: %v", err)
	}
	if len(ledger.LastRestarts) != 0 {
		t.Fatalf("expected empty ledger, got %v", ledger.LastRestarts)
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "ledger.json"), zerolog.Nop())

	if err := store.Save(context.Background(), Ledger{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "ledger.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only ledger.json, got %v", names)
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ledger.json"), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected load to honor canceled context")
	}
	if err := store.Save(ctx, Ledger{}); err == nil {
		t.Fatalf("expected save to honor canceled context")
	}
}
