package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vitalhub/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startViewerEndpoint(t *testing.T) (*Hub, *StateStore, *httptest.Server) {
	t.Helper()

	store := NewStateStore(20)
	info := models.CNInfo{UDPPort: 9999, TCPPort: 9998, WSPort: 8000}
	hub := NewHub(store, info, zap.NewNop())
	web := NewWebServer(hub, t.TempDir(), 64, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(web.handleViewer))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	return hub, store, srv
}

func dialViewer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) rawEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var env rawEnvelope
	require.NoError(t, json.Unmarshal(payload, &env))
	return env
}

func TestViewer_ReceivesSnapshotThenBroadcasts(t *testing.T) {
	hub, store, srv := startViewerEndpoint(t)
	store.UpsertVitals(telemetryFor("p1", 80))

	conn := dialViewer(t, srv)

	env := readEnvelope(t, conn)
	require.Equal(t, models.TypeSnapshot, env.Type)

	var snapshot models.SnapshotData
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	require.Contains(t, snapshot.Patients, "p1")
	assert.Equal(t, 80, snapshot.Patients["p1"].Vitals.HeartRate)
	assert.Equal(t, 9999, snapshot.CNInfo.UDPPort)

	hub.Broadcast(models.NewTelemetryEnvelope(telemetryFor("p1", 95)))

	next := readEnvelope(t, conn)
	require.Equal(t, models.TypeTelemetry, next.Type)

	var telemetry models.TelemetryMessage
	require.NoError(t, json.Unmarshal(next.Data, &telemetry))
	assert.Equal(t, 95, telemetry.Vitals.HeartRate)
}

func TestViewer_DisconnectDoesNotStopOtherViewers(t *testing.T) {
	hub, _, srv := startViewerEndpoint(t)

	first := dialViewer(t, srv)
	second := dialViewer(t, srv)
	readEnvelope(t, first) // snapshots
	readEnvelope(t, second)

	require.Eventually(t, func() bool {
		return hub.SessionCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	first.Close()
	require.Eventually(t, func() bool {
		return hub.SessionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(models.NewAlertEnvelope(alertNo(3)))

	env := readEnvelope(t, second)
	assert.Equal(t, models.TypeAlert, env.Type)
}

func TestViewer_ClientMessagesAreIgnored(t *testing.T) {
	hub, _, srv := startViewerEndpoint(t)

	conn := dialViewer(t, srv)
	readEnvelope(t, conn)

	// Viewer input has no semantic meaning; the session must stay alive
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"hub"}`)))

	hub.Broadcast(models.NewTelemetryEnvelope(telemetryFor("p2", 70)))
	env := readEnvelope(t, conn)
	assert.Equal(t, models.TypeTelemetry, env.Type)
	assert.Equal(t, 1, hub.SessionCount())
}

func TestWebServer_ServesIndexAndRejectsOtherPaths(t *testing.T) {
	store := NewStateStore(20)
	hub := NewHub(store, models.CNInfo{}, zap.NewNop())

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>monitor</html>"), 0o644))

	web := NewWebServer(hub, staticDir, 64, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(web.handleIndex))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	missing, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
