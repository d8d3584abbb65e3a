package hotreload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/observability"
)

// Result describes one finished reload.
type Result struct {
	Events   []Event
	Duration time.Duration
	Err      error
}

// Listener is notified after every reload.
type Listener func(ctx context.Context, result Result) error

// Broadcaster fans reload results out to named listeners.
type Broadcaster struct {
	listeners map[string]Listener
	logger    *observability.Logger
	mu        sync.RWMutex
}

func NewBroadcaster(logger *observability.Logger) *Broadcaster {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Broadcaster{
		listeners: make(map[string]Listener),
		logger:    logger,
	}
}

// AddListener adds a listener with a unique name
func (b *Broadcaster) AddListener(name string, listener Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.listeners[name]; exists {
		return fmt.Errorf("listener %s already exists", name)
	}

	b.listeners[name] = listener
	b.logger.Debug("Added reload listener", zap.String("name", name))
	return nil
}

func (b *Broadcaster) RemoveListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.listeners, name)
	b.logger.Debug("Removed reload listener", zap.String("name", name))
}

// Broadcast calls every listener concurrently and joins their errors.
func (b *Broadcaster) Broadcast(ctx context.Context, result Result) error {
	b.mu.RLock()
	listeners := make(map[string]Listener, len(b.listeners))
	for name, l := range b.listeners {
		listeners[name] = l
	}
	b.mu.RUnlock()

	if len(listeners) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for name, listener := range listeners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener(ctx, result); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("listener %s failed: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Close removes all listeners.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = make(map[string]Listener)
	b.logger.Debug("Reload broadcaster closed")
}

func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *Broadcaster) HasListener(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.listeners[name]
	return exists
}
