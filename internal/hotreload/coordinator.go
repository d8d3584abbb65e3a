package hotreload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/constants"
	"github.com/leslieo2/heartbeat-server/internal/observability"
)

// Reloadable is a component that can re-read its configuration.
type Reloadable interface {
	Reload(ctx context.Context) error
	Name() string
}

// Coordinator debounces watcher events and reloads every registered
// component once per burst of changes.
type Coordinator struct {
	watcher      *Watcher
	broadcaster  *Broadcaster
	logger       *observability.Logger
	reloadables  map[string]Reloadable
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	debounceTime time.Duration
	wg           sync.WaitGroup
	isRunning    bool
}

func NewCoordinator(watcher *Watcher, broadcaster *Broadcaster, logger *observability.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &Coordinator{
		watcher:      watcher,
		broadcaster:  broadcaster,
		logger:       logger,
		reloadables:  make(map[string]Reloadable),
		ctx:          ctx,
		cancel:       cancel,
		debounceTime: constants.HotReloadDebounce,
	}
}

// Register adds a reloadable component to the coordinator
func (c *Coordinator) Register(reloadable Reloadable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := reloadable.Name()
	if _, exists := c.reloadables[name]; exists {
		return fmt.Errorf("reloadable %s already registered", name)
	}

	c.reloadables[name] = reloadable
	c.logger.Info("Registered reloadable component", zap.String("name", name))
	return nil
}

func (c *Coordinator) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.reloadables, name)
	c.logger.Info("Unregistered reloadable component", zap.String("name", name))
}

func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return errors.New("coordinator already running")
	}
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return errors.New("coordinator already stopped")
	}
	c.isRunning = true
	c.mu.Unlock()

	c.watcher.Start()

	c.wg.Add(1)
	go c.coordinateReloads()

	c.logger.Info("Hot reload coordinator started")
	return nil
}

// Stop stops the watcher and waits for an in-flight reload to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	c.mu.Unlock()

	c.cancel()
	c.watcher.Stop()
	c.wg.Wait()

	c.logger.Info("Hot reload coordinator stopped")
}

func (c *Coordinator) coordinateReloads() {
	defer c.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending []Event
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case event, ok := <-c.watcher.Events():
			if !ok {
				return
			}
			pending = append(pending, event)

			debounce := c.getDebounceTime()
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) > 0 {
				c.TriggerReload(pending)
				pending = nil
			}
		}
	}
}

// TriggerReload reloads every registered component concurrently, then
// broadcasts the combined result.
func (c *Coordinator) TriggerReload(events []Event) error {
	c.mu.RLock()
	reloadables := make([]Reloadable, 0, len(c.reloadables))
	for _, r := range c.reloadables {
		reloadables = append(reloadables, r)
	}
	c.mu.RUnlock()

	if len(reloadables) == 0 {
		return nil
	}

	c.logger.Info("Triggering hot reload", zap.Int("events", len(events)))
	for _, event := range events {
		c.logger.Debug("Reload triggered by",
			zap.String("path", event.Path),
			zap.String("operation", event.Op.String()),
		)
	}

	start := time.Now()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, r := range reloadables {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Reload(c.ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to reload %s: %w", r.Name(), err))
				mu.Unlock()
				return
			}
			c.logger.Info("Successfully reloaded component", zap.String("name", r.Name()))
		}()
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Error("Hot reload completed with errors", zap.Int("errors", len(errs)), zap.Error(err))
	} else {
		c.logger.Info("Hot reload completed successfully")
	}

	if c.broadcaster != nil {
		result := Result{Events: events, Duration: time.Since(start), Err: err}
		if berr := c.broadcaster.Broadcast(c.ctx, result); berr != nil {
			c.logger.Warn("Reload listeners failed", zap.Error(berr))
		}
	}
	return err
}

func (c *Coordinator) SetDebounceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debounceTime = d
}

func (c *Coordinator) getDebounceTime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debounceTime
}

func (c *Coordinator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}
