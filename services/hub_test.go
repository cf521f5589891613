package services

import (
	"encoding/json"
	"testing"
	"time"

	"vitalhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rawEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestHub(t *testing.T) (*Hub, *StateStore) {
	t.Helper()
	store := NewStateStore(20)
	info := models.CNInfo{UDPPort: 9999, TCPPort: 9998, WSPort: 8000}
	return NewHub(store, info, zap.NewNop()), store
}

func newTestSession(hub *Hub, buffer int) *Session {
	return NewSession(hub, nil, buffer, zap.NewNop())
}

// receive pops the next queued message for the session or fails the test.
func receive(t *testing.T, s *Session) rawEnvelope {
	t.Helper()
	select {
	case payload := <-s.send:
		var env rawEnvelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session message")
		return rawEnvelope{}
	}
}

// isDone reports whether the hub has signalled the session's teardown.
func isDone(s *Session) bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func TestHub_Join_DeliversSnapshotFirst(t *testing.T) {
	hub, store := newTestHub(t)
	store.UpsertVitals(telemetryFor("p1", 80))
	store.PushAlert(alertNo(0))

	s := newTestSession(hub, 8)
	require.NoError(t, hub.Join(s))
	hub.Broadcast(models.NewTelemetryEnvelope(telemetryFor("p1", 85)))

	first := receive(t, s)
	require.Equal(t, models.TypeSnapshot, first.Type)

	var snapshot models.SnapshotData
	require.NoError(t, json.Unmarshal(first.Data, &snapshot))
	require.Contains(t, snapshot.Patients, "p1")
	assert.Equal(t, 80, snapshot.Patients["p1"].Vitals.HeartRate)
	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, 9999, snapshot.CNInfo.UDPPort)
	assert.Equal(t, 9998, snapshot.CNInfo.TCPPort)
	assert.Equal(t, 8000, snapshot.CNInfo.WSPort)

	second := receive(t, s)
	assert.Equal(t, models.TypeTelemetry, second.Type)
}

func TestHub_Join_SnapshotReflectsIngestedState(t *testing.T) {
	hub, store := newTestHub(t)
	for i := 0; i < 25; i++ {
		store.PushAlert(alertNo(i))
	}
	store.UpsertVitals(telemetryFor("p1", 80))
	store.UpsertVitals(telemetryFor("p2", 90))
	store.UpsertVitals(telemetryFor("p3", 100))

	s := newTestSession(hub, 8)
	require.NoError(t, hub.Join(s))

	env := receive(t, s)
	var snapshot models.SnapshotData
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	assert.Len(t, snapshot.Patients, 3)
	assert.Len(t, snapshot.Alerts, 20)
}

func TestHub_Broadcast_IdenticalPayloadToAllSessions(t *testing.T) {
	hub, _ := newTestHub(t)

	s1 := newTestSession(hub, 8)
	s2 := newTestSession(hub, 8)
	require.NoError(t, hub.Join(s1))
	require.NoError(t, hub.Join(s2))
	receive(t, s1) // drain snapshots
	receive(t, s2)

	hub.Broadcast(models.NewTelemetryEnvelope(telemetryFor("p1", 80)))

	p1 := <-s1.send
	p2 := <-s2.send
	assert.Equal(t, p1, p2)
}

func TestHub_Broadcast_PrunesFailedSessionOnly(t *testing.T) {
	hub, _ := newTestHub(t)

	// Buffer of 1 is consumed by the snapshot, so the next broadcast fails
	slow := newTestSession(hub, 1)
	healthy := newTestSession(hub, 8)
	require.NoError(t, hub.Join(slow))
	require.NoError(t, hub.Join(healthy))
	receive(t, healthy) // drain snapshot

	hub.Broadcast(models.NewAlertEnvelope(alertNo(1)))

	assert.Equal(t, 1, hub.SessionCount())

	env := receive(t, healthy)
	assert.Equal(t, models.TypeAlert, env.Type)

	assert.True(t, isDone(slow))
	assert.False(t, isDone(healthy))
}

func TestHub_Leave_Idempotent(t *testing.T) {
	hub, _ := newTestHub(t)

	s := newTestSession(hub, 8)
	require.NoError(t, hub.Join(s))
	require.Equal(t, 1, hub.SessionCount())

	hub.Leave(s)
	assert.Equal(t, 0, hub.SessionCount())

	// Second leave is a no-op, not a panic
	hub.Leave(s)
	assert.Equal(t, 0, hub.SessionCount())
}

func TestHub_LeftSessionMissesLaterBroadcasts(t *testing.T) {
	hub, _ := newTestHub(t)

	s1 := newTestSession(hub, 8)
	s2 := newTestSession(hub, 8)
	require.NoError(t, hub.Join(s1))
	require.NoError(t, hub.Join(s2))
	receive(t, s1)
	receive(t, s2)

	hub.Leave(s1)
	hub.Broadcast(models.NewTelemetryEnvelope(telemetryFor("p1", 80)))

	env := receive(t, s2)
	assert.Equal(t, models.TypeTelemetry, env.Type)

	assert.True(t, isDone(s1))
	assert.Empty(t, s1.send, "left session must not receive the telemetry")
}

func TestHub_Close_RejectsNewJoins(t *testing.T) {
	hub, _ := newTestHub(t)

	s := newTestSession(hub, 8)
	require.NoError(t, hub.Join(s))

	hub.Close()
	assert.Equal(t, 0, hub.SessionCount())

	late := newTestSession(hub, 8)
	assert.ErrorIs(t, hub.Join(late), ErrHubClosed)
}

func TestHub_Broadcast_NoSessions(t *testing.T) {
	hub, _ := newTestHub(t)
	// Must not panic or block
	hub.Broadcast(models.NewTelemetryEnvelope(telemetryFor("p1", 80)))
}
