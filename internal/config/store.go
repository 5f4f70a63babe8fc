package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// loadOrDefault loads a single document: if the file is missing, return
// def with a non-fatal notice logged; if the file is malformed, leave it
// untouched on disk, log a warning, and return def. It never returns an
// error to the caller — persistence errors are never fatal to startup.
func loadOrDefault[T any](path string, def *T, logger *slog.Logger) *T {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file missing, using defaults", "path", path)
		} else {
			logger.Warn("config file unreadable, using defaults", "path", path, "error", err)
		}
		return def
	}

	var parsed T
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		logger.Warn("config file malformed, preserving file and using defaults", "path", path, "error", err)
		return def
	}

	return &parsed
}

// saveAtomic serializes value to a temp file in the same directory as the
// target, flushes and fsyncs it, then renames it over the target. Parent
// directories are created on demand. A flock guards the sequence against a
// second Jefe process racing the same file.
func saveAtomic(path string, value any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquiring config lock: %w", err)
	}
	defer fl.Unlock()

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	// Remove the temp file on any path that doesn't reach the rename.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file into place: %w", err)
	}

	succeeded = true
	return nil
}
