// Package readiness runs the dependency checks behind the health endpoint.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// Checker is a single readiness sub-check.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckError reports which check failed and why.
type CheckError struct {
	Check string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %v", e.Check, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// Observer is told about every finished check.
type Observer func(name string, duration time.Duration, err error)

// Prober runs a fixed set of checks concurrently.
type Prober struct {
	checks   []Checker
	observer Observer
}

// Option configures a Prober.
type Option func(*Prober)

// WithObserver registers fn to be called once per finished check.
func WithObserver(fn Observer) Option {
	return func(p *Prober) { p.observer = fn }
}

func NewProber(checks []Checker, opts ...Option) *Prober {
	p := &Prober{checks: checks}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Names returns the check names in registration order.
func (p *Prober) Names() []string {
	names := make([]string, 0, len(p.checks))
	for _, c := range p.checks {
		names = append(names, c.Name())
	}
	return names
}

// Run executes every check at once and waits for all of them. On success it
// returns each check name mapped to "connected". The first failure cancels
// the remaining checks and is returned as a *CheckError.
func (p *Prober) Run(ctx context.Context) (map[string]string, error) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	services := make(map[string]string, len(p.checks))

	for _, c := range p.checks {
		g.Go(func() error {
			start := time.Now()
			err := c.Check(gctx)
			if p.observer != nil {
				p.observer(c.Name(), time.Since(start), err)
			}
			if err != nil {
				return &CheckError{Check: c.Name(), Err: err}
			}
			mu.Lock()
			services[c.Name()] = constants.ServiceConnected
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return services, nil
}

// Close releases checks that hold connections.
func (p *Prober) Close() error {
	var errs []error
	for _, c := range p.checks {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s check: %w", c.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
