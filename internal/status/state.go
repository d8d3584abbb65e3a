// Package status holds the process start instant and builds the fixed-shape
// reports served by the liveness, readiness and stream endpoints.
package status

import (
	"sync/atomic"
	"time"

	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// Clock supplies the current time. Tests inject a fake one.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock. Its readings carry a monotonic
// component, so elapsed time is immune to wall clock steps.
var SystemClock Clock = ClockFunc(time.Now)

// ServerState is the only process-wide state: the instant the server
// started. It is created once and shared read-only by every handler.
type ServerState struct {
	clock   Clock
	startAt time.Time

	// highest uptime reported so far; keeps uptime non-decreasing even if
	// an injected clock moves backwards.
	maxUptime atomic.Int64
}

// NewServerState captures the start instant from clock.
func NewServerState(clock Clock) *ServerState {
	if clock == nil {
		clock = SystemClock
	}
	return &ServerState{clock: clock, startAt: clock.Now()}
}

// StartedAt returns the captured start instant.
func (s *ServerState) StartedAt() time.Time {
	return s.startAt
}

// Now returns the current time according to the state's clock.
func (s *ServerState) Now() time.Time {
	return s.clock.Now()
}

// Uptime returns whole seconds elapsed since start, rounded down.
func (s *ServerState) Uptime() int64 {
	return s.uptimeAt(s.clock.Now())
}

func (s *ServerState) uptimeAt(now time.Time) int64 {
	elapsed := int64(now.Sub(s.startAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	for {
		prev := s.maxUptime.Load()
		if elapsed <= prev {
			return prev
		}
		if s.maxUptime.CompareAndSwap(prev, elapsed) {
			return elapsed
		}
	}
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with microseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampLayout)
}
