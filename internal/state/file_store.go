package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// FileStore persists the ledger as JSON on disk.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore returns a JSON-backed ledger store.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Load reads the ledger from disk. Missing or corrupt files return an
// empty ledger with a warning; losing cooldown history only risks one
// extra restart, never a failed cycle.
func (s *FileStore) Load(ctx context.Context) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return Ledger{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Str("path", s.path).Msg("ledger file missing, starting fresh")
			return Ledger{LastRestarts: map[string]time.Time{}}, nil
		}
		return Ledger{}, err
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		s.logger.Warn().Str("path", s.path).Err(err).Msg("ledger file corrupt, starting fresh")
		return Ledger{LastRestarts: map[string]time.Time{}}, nil
	}
	if ledger.LastRestarts == nil {
		ledger.LastRestarts = map[string]time.Time{}
	}
	return ledger, nil
}

// Save writes the ledger to disk atomically.
func (s *FileStore) Save(ctx context.Context, ledger Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ledger.LastRestarts == nil {
		ledger.LastRestarts = map[string]time.Time{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return err
	}

	cleanup := func() {
		_ = os.Remove(tempFile.Name())
	}

	encoder := json.NewEncoder(tempFile)
	if err := encoder.Encode(ledger); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return err
	}

	if err := os.Rename(tempFile.Name(), s.path); err != nil {
		cleanup()
		return err
	}

	if dirHandle, err := os.Open(dir); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}

	return nil
}
