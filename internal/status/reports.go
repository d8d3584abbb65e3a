package status

import (
	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// RootMessage is the body of GET /.
type RootMessage struct {
	Message string `json:"message"`
}

// HeartbeatReport is the liveness payload.
type HeartbeatReport struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Message       string `json:"message"`
}

// HealthReport is the readiness payload when every check passed.
type HealthReport struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Services      map[string]string `json:"services"`
}

// HealthFailure is the readiness payload when a check failed.
type HealthFailure struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// StreamHeartbeat is one message pushed on the heartbeat stream.
type StreamHeartbeat struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Root returns the fixed welcome message.
func Root() RootMessage {
	return RootMessage{Message: constants.MessageRoot}
}

// Heartbeat builds a liveness report for the current instant.
func (s *ServerState) Heartbeat() HeartbeatReport {
	now := s.clock.Now()
	return HeartbeatReport{
		Status:        constants.StatusAlive,
		Timestamp:     FormatTimestamp(now),
		UptimeSeconds: s.uptimeAt(now),
		Message:       constants.MessageHeartbeat,
	}
}

// Healthy builds a successful readiness report listing services.
func (s *ServerState) Healthy(services map[string]string) HealthReport {
	now := s.clock.Now()
	if services == nil {
		services = map[string]string{}
	}
	return HealthReport{
		Status:        constants.StatusHealthy,
		Timestamp:     FormatTimestamp(now),
		UptimeSeconds: s.uptimeAt(now),
		Services:      services,
	}
}

// Unhealthy builds a failed readiness report carrying err's description.
func (s *ServerState) Unhealthy(err error) HealthFailure {
	msg := "readiness check failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return HealthFailure{
		Status:    constants.StatusUnhealthy,
		Error:     msg,
		Timestamp: FormatTimestamp(s.clock.Now()),
	}
}

// StreamBeat builds one heartbeat stream message.
func (s *ServerState) StreamBeat() StreamHeartbeat {
	now := s.clock.Now()
	return StreamHeartbeat{
		Type:          constants.StreamTypeHeartbeat,
		Status:        constants.StatusAlive,
		Timestamp:     FormatTimestamp(now),
		UptimeSeconds: s.uptimeAt(now),
	}
}
