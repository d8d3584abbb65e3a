package readiness

import (
	"context"
	"time"
)

// SimulatedCheck stands in for a dependency that is not configured. It waits
// Delay and then returns Err, which is nil unless a failure is injected.
type SimulatedCheck struct {
	name  string
	Delay time.Duration
	Err   error
}

func NewSimulatedCheck(name string, delay time.Duration) *SimulatedCheck {
	return &SimulatedCheck{name: name, Delay: delay}
}

func (s *SimulatedCheck) Name() string { return s.name }

func (s *SimulatedCheck) Check(ctx context.Context) error {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.Err
}

// FuncCheck adapts a function to Checker.
type FuncCheck struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFuncCheck(name string, fn func(ctx context.Context) error) *FuncCheck {
	return &FuncCheck{name: name, fn: fn}
}

func (f *FuncCheck) Name() string { return f.name }

func (f *FuncCheck) Check(ctx context.Context) error { return f.fn(ctx) }
