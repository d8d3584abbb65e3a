package config

import (
	"errors"
	"time"
)

// StreamConfig configures the WebSocket heartbeat stream.
type StreamConfig struct {
	Interval     time.Duration `json:"interval" yaml:"interval"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// DefaultStreamConfig returns default stream configuration
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Interval:     5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Validate validates the stream configuration
func (s *StreamConfig) Validate() error {
	var errs []error
	if s.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, errors.New("write_timeout must be positive"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
