package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is the lifecycle position of a stream session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one heartbeat stream client. Closed is terminal.
type Session struct {
	ID         string
	RemoteAddr string
	OpenedAt   time.Time

	state atomic.Int32
	sent  atomic.Int64

	mu     sync.Mutex
	conn   *websocket.Conn
	reason string

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(remoteAddr string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		done:       make(chan struct{}),
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Sent returns the number of heartbeats written to the client.
func (s *Session) Sent() int64 {
	return s.sent.Load()
}

// Done is closed once the session reaches StateClosed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Reason describes why the session closed. Empty while it is still open.
func (s *Session) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// open moves Connecting to Open. It fails if the session was closed first.
func (s *Session) open(conn *websocket.Conn, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	s.OpenedAt = at
	return s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// close moves the session to Closed. Only the first call has any effect.
// A close frame with code is attempted before the connection is dropped.
func (s *Session) close(code int, reason string) bool {
	closed := false
	s.closeOnce.Do(func() {
		closed = true

		s.mu.Lock()
		s.reason = reason
		conn := s.conn
		s.state.Store(int32(StateClosed))
		s.mu.Unlock()
		close(s.done)

		if conn != nil {
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
			_ = conn.Close()
		}
	})
	return closed
}
