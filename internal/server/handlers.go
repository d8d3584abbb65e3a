package server

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/status"
)

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, status.Root())
}

// heartbeatHandler reports liveness. It never fails.
func (s *Server) heartbeatHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "heartbeat")
	defer span.End()

	report := s.state.Heartbeat()
	span.SetAttributes(attribute.Int64("uptime_seconds", report.UptimeSeconds))
	s.writeJSON(w, http.StatusOK, report)
}

// healthHandler runs every readiness check concurrently and answers 200 when
// all pass, 503 with the first failure otherwise.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.StartSpan(r.Context(), "health_check")
	defer span.End()

	services, err := s.prober.Run(ctx)
	if err != nil {
		s.metrics.SetHealthStatus(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("Health check failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusServiceUnavailable, s.state.Unhealthy(err))
		return
	}

	s.metrics.SetHealthStatus(true)
	s.writeJSON(w, http.StatusOK, s.state.Healthy(services))

	s.logger.Debug("Health check completed",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("services", len(services)),
	)
}
