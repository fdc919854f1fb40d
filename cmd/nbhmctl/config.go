package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config is nbhmctl's run configuration, loadable from a human-JSON file
// (comments and trailing commas allowed) so a saved benchmark profile stays
// readable.
type Config struct {
	InitialCapacity int `json:"initial_capacity"`
	Workers         int `json:"workers"`
	Operations      int `json:"operations"`
	MigrationChunk  int `json:"migration_chunk,omitempty"`
}

// DefaultConfig returns nbhmctl's built-in defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapacity: 1024,
		Workers:         8,
		Operations:      100_000,
	}
}

// LoadConfig reads and merges a hujson config file over the defaults. A
// missing path is not an error: it simply means "use the defaults".
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("nbhmctl: reading config %q: %w", path, err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, fmt.Errorf("nbhmctl: parsing config %q: %w", path, err)
	}

	if err := json.Unmarshal(standard, &cfg); err != nil {
		return Config{}, fmt.Errorf("nbhmctl: decoding config %q: %w", path, err)
	}

	return cfg, nil
}
