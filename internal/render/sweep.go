package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Sweep removes every PNG file directly inside dir and returns how many were
// removed. A missing directory is not an error.
func Sweep(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing %s: %w", m, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
