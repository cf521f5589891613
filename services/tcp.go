package services

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"vitalhub/models"

	"go.uber.org/zap"
)

// AlertSink receives every accepted alert in addition to the viewer fan-out.
// Sink failures are logged and never affect ingestion.
type AlertSink interface {
	PublishAlert(a *models.AlertMessage) error
}

// TCPIngestor accepts persistent connections from alert sources and reads
// newline-delimited alert records from each. Connections are independent; a
// malformed line skips that line only, a transport error closes that one
// connection only.
type TCPIngestor struct {
	store  *StateStore
	hub    *Hub
	logger *zap.Logger
	sinks  []AlertSink

	listener net.Listener
	active   atomic.Int64

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewTCPIngestor(store *StateStore, hub *Hub, logger *zap.Logger) *TCPIngestor {
	return &TCPIngestor{
		store:  store,
		hub:    hub,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// AddAlertSink registers an additional consumer of accepted alerts. Must be
// called before Start.
func (t *TCPIngestor) AddAlertSink(sink AlertSink) {
	t.sinks = append(t.sinks, sink)
}

// Start binds the stream listener and launches the accept loop. A bind
// failure is fatal to startup; cancelling ctx stops accepting and closes
// every open source connection.
func (t *TCPIngestor) Start(ctx context.Context, host string, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("failed to bind TCP listener on %s:%d: %w", host, port, err)
	}
	t.listener = listener

	t.logger.Info("TCP alert listener started",
		zap.String("host", host), zap.Int("port", port))

	go func() {
		<-ctx.Done()
		listener.Close()
		t.mu.Lock()
		for conn := range t.conns {
			conn.Close()
		}
		t.mu.Unlock()
	}()
	go t.acceptLoop(ctx)

	return nil
}

func (t *TCPIngestor) acceptLoop(ctx context.Context) {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				t.logger.Info("TCP listener stopped")
			} else {
				t.logger.Error("TCP accept failed, listener stopping", zap.Error(err))
			}
			return
		}
		t.mu.Lock()
		t.conns[conn] = struct{}{}
		t.mu.Unlock()
		go t.handleConn(conn)
	}
}

func (t *TCPIngestor) handleConn(conn net.Conn) {
	active := t.active.Add(1)
	t.logger.Info("Alert source connected",
		zap.String("remote_addr", conn.RemoteAddr().String()),
		zap.Int64("active_connections", active))

	defer func() {
		conn.Close()
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
		t.logger.Info("Alert source disconnected",
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.Int64("active_connections", t.active.Add(-1)))
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		alert, err := decodeAlert(line)
		if err != nil {
			// Skip the line, keep the connection
			t.logger.Debug("Skipping malformed alert line",
				zap.String("remote_addr", conn.RemoteAddr().String()), zap.Error(err))
			continue
		}

		t.store.PushAlert(alert)
		t.hub.Broadcast(models.NewAlertEnvelope(alert))

		for _, sink := range t.sinks {
			if err := sink.PublishAlert(alert); err != nil {
				t.logger.Error("Alert sink failed",
					zap.String("patient_id", alert.PatientID), zap.Error(err))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		t.logger.Warn("Alert source read failed",
			zap.String("remote_addr", conn.RemoteAddr().String()), zap.Error(err))
	}
}

// ConnectionCount reports the number of live alert-source connections; the
// stats emitter reads it on every tick.
func (t *TCPIngestor) ConnectionCount() int {
	return int(t.active.Load())
}

// Port reports the bound port, useful when started on port 0.
func (t *TCPIngestor) Port() int {
	if t.listener == nil {
		return 0
	}
	return t.listener.Addr().(*net.TCPAddr).Port
}
