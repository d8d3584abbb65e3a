package config

import (
	"fmt"
	"time"

	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// HotReloadConfig controls watching the configuration file for changes.
// Only the log level and the stream interval are applied live; everything
// else needs a restart.
type HotReloadConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// DefaultHotReloadConfig returns default hot reload configuration
func DefaultHotReloadConfig() HotReloadConfig {
	return HotReloadConfig{
		Enabled:  true,
		Debounce: constants.HotReloadDebounce,
	}
}

// Validate validates hot reload configuration
func (h HotReloadConfig) Validate() error {
	if h.Debounce < 0 {
		return fmt.Errorf("hot reload debounce time must be non-negative")
	}
	return nil
}
