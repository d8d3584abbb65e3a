package config

import (
	"errors"
	"time"
)

// ReadinessConfig configures the dependency checks behind /health.
//
// With no DSN or address configured the checks are simulated and always
// succeed after SimulatedDelay. Setting Database.DSN or Cache.Addr swaps the
// matching simulated check for a real probe.
type ReadinessConfig struct {
	SimulatedDelay time.Duration `json:"simulated_delay" yaml:"simulated_delay"`
	Database       DatabaseCheck `json:"database" yaml:"database"`
	Cache          CacheCheck    `json:"cache" yaml:"cache"`
}

// DatabaseCheck configures the Postgres readiness probe.
type DatabaseCheck struct {
	DSN     string        `json:"dsn" yaml:"dsn"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// CacheCheck configures the Redis readiness probe.
type CacheCheck struct {
	Addr     string        `json:"addr" yaml:"addr"`
	Password string        `json:"password" yaml:"password"`
	DB       int           `json:"db" yaml:"db"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultReadinessConfig returns default readiness configuration
func DefaultReadinessConfig() ReadinessConfig {
	return ReadinessConfig{
		SimulatedDelay: 100 * time.Millisecond,
		Database:       DatabaseCheck{Timeout: 2 * time.Second},
		Cache:          CacheCheck{Timeout: 2 * time.Second},
	}
}

// Validate validates the readiness configuration
func (r *ReadinessConfig) Validate() error {
	var errs []error

	if r.SimulatedDelay < 0 {
		errs = append(errs, errors.New("simulated_delay must be non-negative"))
	}
	if r.Database.DSN != "" && r.Database.Timeout <= 0 {
		errs = append(errs, errors.New("database.timeout must be positive"))
	}
	if r.Cache.Addr != "" && r.Cache.Timeout <= 0 {
		errs = append(errs, errors.New("cache.timeout must be positive"))
	}
	if r.Cache.DB < 0 {
		errs = append(errs, errors.New("cache.db must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
