// Package stream pushes periodic heartbeats to WebSocket clients.
package stream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/observability"
	"github.com/leslieo2/heartbeat-server/internal/status"
)

const maxClientMessageSize = 4096

// Source produces the payload for each tick.
type Source interface {
	StreamBeat() status.StreamHeartbeat
}

// Recorder receives stream lifecycle events. *observability.Metrics
// satisfies it.
type Recorder interface {
	StreamOpened()
	StreamClosed()
	StreamMessageSent()
}

// Handler upgrades requests to WebSocket and writes one heartbeat per
// interval until the client goes away.
type Handler struct {
	source       Source
	logger       *observability.Logger
	recorder     Recorder
	writeTimeout time.Duration
	interval     atomic.Int64
	upgrader     websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
	closing  bool
	wg       sync.WaitGroup
}

// Option configures a Handler.
type Option func(*Handler)

// WithRecorder reports session lifecycle to r.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) { h.recorder = r }
}

func NewHandler(source Source, cfg config.StreamConfig, logger *observability.Logger, opts ...Option) *Handler {
	h := &Handler{
		source:       source,
		logger:       logger,
		writeTimeout: cfg.WriteTimeout,
		sessions:     make(map[string]*Session),
		upgrader: websocket.Upgrader{
			// Cross-origin clients are allowed, matching the HTTP CORS policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	h.interval.Store(int64(cfg.Interval))
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Interval returns the tick interval applied to new sessions.
func (h *Handler) Interval() time.Duration {
	return time.Duration(h.interval.Load())
}

// SetInterval changes the tick interval. Sessions already open keep theirs.
func (h *Handler) SetInterval(d time.Duration) {
	if d > 0 {
		h.interval.Store(int64(d))
	}
}

// ActiveSessions returns the number of open sessions.
func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := newSession(r.RemoteAddr)

	if !h.track(session) {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.untrack(session)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		session.close(websocket.CloseProtocolError, "handshake failed")
		h.logger.Warn("WebSocket handshake failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	conn.SetReadLimit(maxClientMessageSize)

	if !session.open(conn, time.Now()) {
		_ = conn.Close()
		return
	}

	if h.recorder != nil {
		h.recorder.StreamOpened()
		defer h.recorder.StreamClosed()
	}
	h.logger.Info("Client connected",
		zap.String("session_id", session.ID),
		zap.String("remote_addr", session.RemoteAddr),
	)

	go h.readLoop(session)
	h.writeLoop(session, h.Interval())

	h.logger.Info("Client disconnected",
		zap.String("session_id", session.ID),
		zap.String("remote_addr", session.RemoteAddr),
		zap.String("reason", session.Reason()),
		zap.Int64("messages_sent", session.Sent()),
		zap.Duration("duration", time.Since(session.OpenedAt)),
	)
}

// readLoop discards client frames and closes the session when the peer
// disconnects or the transport fails.
func (h *Handler) readLoop(s *Session) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			reason := "client disconnected"
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				reason = "read error"
				h.logger.Debug("stream read error", zap.String("session_id", s.ID), zap.Error(err))
			}
			s.close(websocket.CloseNormalClosure, reason)
			return
		}
	}
}

func (h *Handler) writeLoop(s *Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := s.conn.WriteJSON(h.source.StreamBeat()); err != nil {
				h.logger.Debug("stream write error", zap.String("session_id", s.ID), zap.Error(err))
				s.close(websocket.CloseInternalServerErr, "write error")
				return
			}
			s.sent.Add(1)
			if h.recorder != nil {
				h.recorder.StreamMessageSent()
			}
		case <-s.done:
			return
		}
	}
}

func (h *Handler) track(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.sessions[s.ID] = s
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID)
	h.mu.Unlock()
	h.wg.Done()
}

// Shutdown refuses new sessions, closes every open one with a going-away
// frame and waits for their handlers to return or ctx to end.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("stream sessions still open at shutdown"), ctx.Err())
	}
}
