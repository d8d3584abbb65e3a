package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// writeJSON marshals body before touching the response so an encoding
// failure can still become a clean 500.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	buf, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("Failed to serialize response", zap.Error(err))
		s.sendErrorResponse(w, http.StatusInternalServerError, "failed to serialize response")
		return
	}
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf)
}

// sendErrorResponse sends a JSON error response
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
