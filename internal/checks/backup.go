package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/check"
	"github.com/stackwarden/stackwarden/internal/config"
)

const backupCheckName = "backup"

// BackupCheck inspects the backup store for the most recent artifact and
// reports its age. It never remediates: creating a backup is a
// longer-running job delegated to its own externally scheduled sibling;
// this check only reports staleness.
type BackupCheck struct {
	logger  zerolog.Logger
	dir     string
	pattern string
	maxAge  time.Duration
	now     func() time.Time
}

// NewBackupCheck constructs the backup freshness check.
func NewBackupCheck(logger zerolog.Logger, cfg config.Config, now func() time.Time) *BackupCheck {
	if now == nil {
		now = time.Now
	}
	return &BackupCheck{
		logger:  logger,
		dir:     cfg.BackupDir,
		pattern: cfg.BackupPattern,
		maxAge:  cfg.BackupMaxAge,
		now:     now,
	}
}

// Run reports the age of the freshest matching artifact.
func (c *BackupCheck) Run(ctx context.Context) []check.Result {
	_ = ctx
	return []check.Result{c.inspect()}
}

func (c *BackupCheck) inspect() check.Result {
	matches, err := filepath.Glob(filepath.Join(c.dir, c.pattern))
	if err != nil {
		return check.Result{
			Name:     backupCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("backup store inspection failed: %v", err),
		}
	}

	newest, newestTime, found := newestArtifact(matches)
	if !found {
		return check.Result{
			Name:     backupCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("no recent backup: no artifacts matching %s in %s", c.pattern, c.dir),
		}
	}

	age := c.now().Sub(newestTime)
	if age > c.maxAge {
		return check.Result{
			Name:     backupCheckName,
			Severity: check.SeverityWarning,
			Message:  fmt.Sprintf("no recent backup: newest artifact %s is %.1f hours old", filepath.Base(newest), age.Hours()),
		}
	}

	return check.Result{
		Name:     backupCheckName,
		Severity: check.SeverityOK,
		Message:  fmt.Sprintf("newest backup %s is %.1f hours old", filepath.Base(newest), age.Hours()),
	}
}

func newestArtifact(paths []string) (string, time.Time, bool) {
	var (
		newest     string
		newestTime time.Time
		found      bool
	)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !found || info.ModTime().After(newestTime) {
			newest = path
			newestTime = info.ModTime()
			found = true
		}
	}
	return newest, newestTime, found
}
