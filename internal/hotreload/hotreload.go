// Package hotreload watches configuration files and reloads registered
// components when they change.
package hotreload

import (
	"context"
	"sync"
	"time"

	"github.com/leslieo2/heartbeat-server/internal/observability"
)

// Manager wires a Watcher, a Coordinator and a Broadcaster together.
type Manager struct {
	watcher     *Watcher
	coordinator *Coordinator
	broadcaster *Broadcaster
	logger      *observability.Logger
	mu          sync.Mutex
	started     bool
}

func NewManager(logger *observability.Logger) (*Manager, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	watcher, err := NewWatcher(logger)
	if err != nil {
		return nil, err
	}

	broadcaster := NewBroadcaster(logger)
	coordinator := NewCoordinator(watcher, broadcaster, logger)

	return &Manager{
		watcher:     watcher,
		coordinator: coordinator,
		broadcaster: broadcaster,
		logger:      logger,
	}, nil
}

// AddWatch adds a file to watch
func (m *Manager) AddWatch(path string) error {
	return m.watcher.Add(path)
}

func (m *Manager) RemoveWatch(path string) error {
	return m.watcher.Remove(path)
}

func (m *Manager) RegisterReloadable(reloadable Reloadable) error {
	return m.coordinator.Register(reloadable)
}

// AddListener adds a listener notified after each reload.
func (m *Manager) AddListener(name string, listener Listener) error {
	return m.broadcaster.AddListener(name, listener)
}

func (m *Manager) RemoveListener(name string) {
	m.broadcaster.RemoveListener(name)
}

func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	if err := m.coordinator.Start(); err != nil {
		return err
	}

	m.started = true
	m.logger.Info("Hot reload system started")
	return nil
}

// Stop stops watching and releases the file watcher. A stopped Manager
// cannot be restarted.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.coordinator.Stop()
	m.watcher.Stop()
	m.broadcaster.Close()
	if m.started {
		m.started = false
		m.logger.Info("Hot reload system stopped")
	}
}

func (m *Manager) SetDebounceTime(d time.Duration) {
	m.coordinator.SetDebounceTime(d)
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Shutdown stops the manager. It matches the shutdown signature used by the
// server so it can join the parallel shutdown.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
