package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Session is one connected dashboard viewer. The hub pushes serialized
// messages into send; WritePump is the only goroutine that touches the
// websocket write side. Teardown closes done rather than the send channel,
// so a broadcast racing a disconnect can never write to a closed channel.
type Session struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	logger    *zap.Logger
	closeOnce sync.Once
}

func NewSession(hub *Hub, conn *websocket.Conn, sendBuffer int, logger *zap.Logger) *Session {
	return &Session{
		ID:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue offers a payload to the session without blocking. It reports false
// when the queue is full, which the hub treats as a dead viewer. A session
// already being torn down swallows the payload silently.
func (s *Session) enqueue(payload []byte) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// close signals teardown; called by the hub when the session is removed.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// WritePump delivers queued messages to the peer. A failed write removes the
// session from the hub; delivery to other sessions is unaffected.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug("Viewer write failed",
					zap.String("session_id", s.ID), zap.Error(err))
				s.hub.Leave(s)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Leave(s)
				return
			}
		}
	}
}

// ReadPump drains inbound frames. Viewer payloads carry no meaning for the
// hub; reading only keeps the connection alive and detects disconnects.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Leave(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
