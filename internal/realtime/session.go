package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

// Conn is the transport handle a session writes to. *websocket.Conn
// satisfies it; tests use an in-memory fake.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

const sendBuffer = 32

// session is one live socket. All writes go through the send channel and a
// single write pump, since websocket connections allow one writer at a time.
type session struct {
	conn Conn
	send chan model.Envelope

	mu     sync.Mutex
	closed bool
}

func newSession(conn Conn) *session {
	s := &session{
		conn: conn,
		send: make(chan model.Envelope, sendBuffer),
	}
	go s.writePump()
	return s
}

func (s *session) writePump() {
	for env := range s.send {
		if err := s.conn.WriteJSON(env); err != nil {
			log.Debug().Err(err).Str("event", env.Event).Msg("socket write failed")
		}
	}
	_ = s.conn.Close()
}

// push queues an envelope without blocking. A slow consumer loses messages;
// every push is a full current-state snapshot, so the next one supersedes it.
// Pushes racing close are dropped: the send channel is only closed while
// holding mu with the closed flag set, so push can never hit a closed channel.
func (s *session) push(env model.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- env:
	default:
		log.Warn().Str("event", env.Event).Msg("send buffer full, dropping message")
	}
}

// close stops the write pump, which closes the underlying connection.
// Idempotent.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
