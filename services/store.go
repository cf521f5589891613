package services

import (
	"sync"

	"vitalhub/models"
)

// StateStore holds the authoritative in-memory state: the latest vitals per
// patient and a bounded most-recent-first ring of alerts. Messages are never
// mutated after parse, so Snapshot only needs to copy the containers.
type StateStore struct {
	mu       sync.Mutex
	patients map[string]*models.TelemetryMessage
	alerts   []*models.AlertMessage
	capacity int
}

func NewStateStore(alertCapacity int) *StateStore {
	return &StateStore{
		patients: make(map[string]*models.TelemetryMessage),
		alerts:   make([]*models.AlertMessage, 0, alertCapacity),
		capacity: alertCapacity,
	}
}

// UpsertVitals replaces the stored entry for the message's patient.
// Last write wins; timestamps are not compared.
func (s *StateStore) UpsertVitals(t *models.TelemetryMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[t.PatientID] = t
}

// PushAlert prepends the alert to the ring, evicting the oldest entry once
// the ring is at capacity.
func (s *StateStore) PushAlert(a *models.AlertMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.alerts) == s.capacity {
		copy(s.alerts[1:], s.alerts)
		s.alerts[0] = a
		return
	}
	s.alerts = append(s.alerts, nil)
	copy(s.alerts[1:], s.alerts)
	s.alerts[0] = a
}

// Snapshot returns copies of the patient map and the alert ring (most recent
// first). Callers may iterate the results without holding any lock.
func (s *StateStore) Snapshot() (map[string]*models.TelemetryMessage, []*models.AlertMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patients := make(map[string]*models.TelemetryMessage, len(s.patients))
	for id, t := range s.patients {
		patients[id] = t
	}
	alerts := make([]*models.AlertMessage, len(s.alerts))
	copy(alerts, s.alerts)
	return patients, alerts
}

// AlertCount reports how many alerts the ring currently retains.
func (s *StateStore) AlertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}
