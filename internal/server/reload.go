package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/hotreload"
)

// WatchConfig starts a hot reload manager that calls Reload whenever the
// loaded configuration file changes. The caller owns the returned manager
// and must stop it.
func (s *Server) WatchConfig() (*hotreload.Manager, error) {
	s.mu.RLock()
	file := s.config.ConfigFile
	debounce := s.config.HotReload.Debounce
	s.mu.RUnlock()

	if file == "" || s.loader == nil {
		return nil, errors.New("hot reload requires a configuration file")
	}

	manager, err := hotreload.NewManager(s.logger.Named("hotreload"))
	if err != nil {
		return nil, fmt.Errorf("failed to create hot reload manager: %w", err)
	}
	manager.SetDebounceTime(debounce)

	if err := manager.AddWatch(file); err != nil {
		manager.Stop()
		return nil, fmt.Errorf("failed to watch %s: %w", file, err)
	}
	if err := manager.RegisterReloadable(s); err != nil {
		manager.Stop()
		return nil, err
	}
	if err := manager.AddListener("metrics", s.recordReload); err != nil {
		manager.Stop()
		return nil, err
	}
	if err := manager.Start(); err != nil {
		manager.Stop()
		return nil, fmt.Errorf("failed to start hot reload: %w", err)
	}

	s.logger.Info("Watching configuration file", zap.String("path", file))
	return manager, nil
}

func (s *Server) recordReload(_ context.Context, result hotreload.Result) error {
	s.metrics.RecordReload(result.Err)
	return nil
}
