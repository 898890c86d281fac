package remedy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// sweepDirs removes regular files older than cutoff under each directory.
// Missing directories are skipped; per-file failures are collected but do
// not stop the sweep. Sweeping an empty target removes nothing and never
// errors.
func sweepDirs(dirs []string, cutoff time.Time) (int, error) {
	removed := 0
	var errs []error

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				if entry == nil && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				errs = append(errs, err)
				return nil
			}
			if !entry.Type().IsRegular() {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if info.ModTime().After(cutoff) {
				return nil
			}
			if err := os.Remove(path); err != nil {
				errs = append(errs, err)
				return nil
			}
			removed++
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return removed, errors.Join(errs...)
}
