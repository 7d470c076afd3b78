// Package fsutil provides filesystem helpers for generated output files.
package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// WriteAtomic writes data to path via a same-directory temp file and
// rename, so readers never observe a partially written file. Parent
// directories are created as needed.
func WriteAtomic(path string, data []byte) error {
	target := strings.TrimSpace(path)
	if target == "" {
		return errors.New("empty output path")
	}
	dir := filepath.Dir(target)
	if strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	tmp := target + ".tmp"
	// #nosec G304 -- output path comes from trusted config/flags.
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
