// Package fileutils provides utility functions for handling files and file names.
package fileutils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
	"golang.org/x/text/unicode/norm"
)

// AtomicWrite writes data to a file atomically, creating parent directories as needed.
// If the file already exists, then it will be overwritten.
// Not atomic on Windows.
func AtomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("could not create directory for %s: %v", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %v", err)
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove temporary file", "file", tmp.Name(), "error", err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("could not write to temporary file: %v", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary file: %v", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not rename temporary file: %v", err)
	}
	return nil
}

// SafeName converts an arbitrary group or table name into a file name component.
//
// The name is NFKC normalized and trimmed, spaces become underscores, and any
// character outside [A-Za-z0-9._-] becomes an underscore. The result is
// truncated to a fixed maximum length. An empty result yields "unnamed".
func SafeName(name string) string {
	name = norm.NFKC.String(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	s := b.String()
	if len(s) > constants.MaxFileNameLength {
		s = s[:constants.MaxFileNameLength]
	}
	if s == "" {
		return "unnamed"
	}
	return s
}
