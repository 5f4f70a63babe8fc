// Package config provides path resolution and atomic persistence for
// Jefe's two documents: the user Settings and the repository/agent
// Catalog.
//
// Both documents resolve through the same three-tier precedence: an
// absolute-path environment override, then a directory-level environment
// override plus a fixed filename, then a per-OS platform default.
// Independent variables per document:
//
//   - JEFE_SETTINGS_PATH: absolute path to the settings file.
//   - JEFE_SETTINGS_DIR: directory holding settings.yaml.
//   - JEFE_CATALOG_PATH: absolute path to the catalog file.
//   - JEFE_CATALOG_DIR: directory holding catalog.yaml.
//
// Settings and catalog share a single Jefe-owned directory (stateDir
// below) unless an environment override points one of them elsewhere.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	settingsFilename = "settings.yaml"
	catalogFilename  = "catalog.yaml"
	stateDirName     = "jefe"
)

// stateDir returns the per-OS default directory Jefe's own files live in
// when no environment override applies: the platform's standard config
// directory (macOS Application Support, Linux XDG_CONFIG_HOME, Windows
// roaming AppData) joined with "jefe".
func stateDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determining platform config directory: %w", err)
	}
	return filepath.Join(base, stateDirName), nil
}

// SettingsPath resolves the settings file path per the precedence table:
// absolute-path override, directory override + fixed filename, platform
// default.
func SettingsPath() (string, error) {
	return resolvePath("JEFE_SETTINGS_PATH", "JEFE_SETTINGS_DIR", settingsFilename)
}

// CatalogPath resolves the catalog file path using the same precedence.
func CatalogPath() (string, error) {
	return resolvePath("JEFE_CATALOG_PATH", "JEFE_CATALOG_DIR", catalogFilename)
}

func resolvePath(pathEnv, dirEnv, filename string) (string, error) {
	if p := os.Getenv(pathEnv); p != "" {
		return p, nil
	}
	if dir := os.Getenv(dirEnv); dir != "" {
		return filepath.Join(dir, filename), nil
	}
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}
