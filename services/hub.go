package services

import (
	"encoding/json"
	"errors"
	"sync"

	"vitalhub/models"

	"go.uber.org/zap"
)

// ErrHubClosed is returned by Join once shutdown has begun; late viewers are
// rejected rather than accepted and silently dropped.
var ErrHubClosed = errors.New("hub is shut down")

// Hub owns the set of connected viewer sessions and fans ingested events out
// to all of them. A session that cannot keep up or whose write fails is pruned
// without affecting delivery to the others.
//
// Ordering rule for the join/broadcast race: Join registers the session and
// enqueues its snapshot under the hub lock, so any broadcast that acquires the
// lock afterwards is delivered after the snapshot, and a broadcast that copied
// the session set before the join never reaches the new session at all.
type Hub struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool

	store  *StateStore
	info   models.CNInfo
	logger *zap.Logger
}

func NewHub(store *StateStore, info models.CNInfo, logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		store:    store,
		info:     info,
		logger:   logger,
	}
}

// Join registers the session and hands it the one-shot state snapshot. The
// snapshot is enqueued before Join returns, so the session can never observe
// a later broadcast ahead of its baseline.
func (h *Hub) Join(s *Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	patients, alerts := h.store.Snapshot()
	payload, err := json.Marshal(models.NewSnapshotEnvelope(&models.SnapshotData{
		Patients: patients,
		Alerts:   alerts,
		CNInfo:   h.info,
	}))
	if err != nil {
		return err
	}

	h.sessions[s] = struct{}{}
	s.enqueue(payload)

	h.logger.Info("Viewer session joined",
		zap.String("session_id", s.ID),
		zap.Int("active_sessions", len(h.sessions)))
	return nil
}

// Leave removes the session from the set and signals its teardown. Removing
// a session that already left is a no-op.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	s.close()

	h.logger.Info("Viewer session left",
		zap.String("session_id", s.ID),
		zap.Int("active_sessions", len(h.sessions)))
}

// Broadcast serializes the envelope once and delivers it to a point-in-time
// copy of the session set. A session whose queue is full is treated as failed
// and pruned; nothing propagates back to the caller.
func (h *Hub) Broadcast(env models.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message",
			zap.String("type", env.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	recipients := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		recipients = append(recipients, s)
	}
	h.mu.Unlock()

	for _, s := range recipients {
		if !s.enqueue(payload) {
			h.logger.Warn("Viewer session too slow, dropping it",
				zap.String("session_id", s.ID))
			h.Leave(s)
		}
	}
}

// SessionCount reports the number of currently connected viewers.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close rejects future joins and tears down every connected session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.sessions {
		s.close()
		delete(h.sessions, s)
	}
}
