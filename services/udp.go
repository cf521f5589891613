package services

import (
	"context"
	"fmt"
	"net"

	"vitalhub/models"

	"go.uber.org/zap"
)

// UDPIngestor receives one vitals snapshot per datagram. Malformed datagrams
// are dropped without closing the socket; the transport is connectionless so
// there is nobody to report the error to.
type UDPIngestor struct {
	store  *StateStore
	hub    *Hub
	logger *zap.Logger
	conn   *net.UDPConn
}

func NewUDPIngestor(store *StateStore, hub *Hub, logger *zap.Logger) *UDPIngestor {
	return &UDPIngestor{
		store:  store,
		hub:    hub,
		logger: logger,
	}
}

// Start binds the datagram socket and launches the read loop. A bind failure
// is fatal to startup and returned to the caller; the socket is closed when
// ctx is cancelled.
func (u *UDPIngestor) Start(ctx context.Context, host string, port int) error {
	addr := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP listener on %s:%d: %w", host, port, err)
	}
	u.conn = conn

	u.logger.Info("UDP telemetry listener started",
		zap.String("host", host), zap.Int("port", port))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go u.readLoop(ctx)

	return nil
}

func (u *UDPIngestor) readLoop(ctx context.Context) {
	buf := make([]byte, 65535)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				u.logger.Info("UDP listener stopped")
			} else {
				u.logger.Error("UDP read failed, listener stopping", zap.Error(err))
			}
			return
		}
		u.handleDatagram(buf[:n])
	}
}

// handleDatagram applies one datagram: parse, validate, upsert, fan out.
func (u *UDPIngestor) handleDatagram(data []byte) {
	msg, err := decodeTelemetry(data)
	if err != nil {
		u.logger.Debug("Dropping malformed telemetry datagram", zap.Error(err))
		return
	}

	u.store.UpsertVitals(msg)
	u.hub.Broadcast(models.NewTelemetryEnvelope(msg))
}

// Port reports the bound port, useful when started on port 0.
func (u *UDPIngestor) Port() int {
	if u.conn == nil {
		return 0
	}
	return u.conn.LocalAddr().(*net.UDPAddr).Port
}
