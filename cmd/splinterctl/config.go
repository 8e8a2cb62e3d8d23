package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// rcConfig holds the debug tool's own settings, loaded from an optional
// ~/.splinterctl.hujson file. It has nothing to do with the label-table
// config file splinter's own command-line client reads; this is purely
// convenience defaults for splinterctl's "new" prompts.
type rcConfig struct {
	DefaultSlots    uint32 `json:"default_slots"`
	DefaultMaxValSz uint32 `json:"default_max_val_sz"`
	DefaultPath     string `json:"default_path"`
}

func defaultRCConfig() rcConfig {
	return rcConfig{
		DefaultSlots:    1024,
		DefaultMaxValSz: 4096,
	}
}

// rcPath returns the path to the rc file, or "" if the home directory
// cannot be determined.
func rcPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".splinterctl.hujson")
}

// loadRCConfig reads and parses the rc file, tolerating a missing file by
// returning defaults. A malformed file is reported as an error rather
// than silently ignored.
func loadRCConfig() (rcConfig, error) {
	cfg := defaultRCConfig()

	path := rcPath()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := json.Unmarshal(standard, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}
