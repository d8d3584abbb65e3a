package readiness

import (
	"fmt"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// ChecksFromConfig returns the database and cache checks. Each is simulated
// unless a real target is configured for it.
func ChecksFromConfig(cfg config.ReadinessConfig) ([]Checker, error) {
	checks := make([]Checker, 0, 2)

	if cfg.Database.DSN != "" {
		pg, err := NewPostgresCheck(constants.CheckDatabase, cfg.Database.DSN, cfg.Database.Timeout)
		if err != nil {
			return nil, fmt.Errorf("database check: %w", err)
		}
		checks = append(checks, pg)
	} else {
		checks = append(checks, NewSimulatedCheck(constants.CheckDatabase, cfg.SimulatedDelay))
	}

	if cfg.Cache.Addr != "" {
		checks = append(checks, NewRedisCheck(constants.CheckCache, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.Timeout))
	} else {
		checks = append(checks, NewSimulatedCheck(constants.CheckCache, cfg.SimulatedDelay))
	}

	return checks, nil
}
