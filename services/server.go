package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebServer serves the dashboard page, its static assets and the /ws viewer
// endpoint. It is a thin wrapper: everything of substance happens in the hub.
type WebServer struct {
	hub        *Hub
	staticDir  string
	sendBuffer int
	logger     *zap.Logger

	upgrader websocket.Upgrader
	server   *http.Server
}

func NewWebServer(hub *Hub, staticDir string, sendBuffer int, logger *zap.Logger) *WebServer {
	return &WebServer{
		hub:        hub,
		staticDir:  staticDir,
		sendBuffer: sendBuffer,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Dashboard is served from the same process; no origin policy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start binds the HTTP listener and begins serving. A bind failure is fatal
// to startup and returned before any request is handled.
func (ws *WebServer) Start(host string, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ws.handleIndex)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(ws.staticDir))))
	mux.HandleFunc("/ws", ws.handleViewer)

	addr := fmt.Sprintf("%s:%d", host, port)
	ws.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind HTTP listener on %s: %w", addr, err)
	}

	ws.logger.Info("Web server started", zap.String("addr", addr))

	go func() {
		if err := ws.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			ws.logger.Error("Web server stopped unexpectedly", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown stops accepting viewers and tears down the hub's sessions.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.hub.Close()
	if ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}

func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(ws.staticDir, "index.html"))
}

// handleViewer upgrades the connection, joins the hub (which delivers the
// snapshot before any later broadcast) and runs the session pumps.
func (ws *WebServer) handleViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	session := NewSession(ws.hub, conn, ws.sendBuffer, ws.logger)
	if err := ws.hub.Join(session); err != nil {
		ws.logger.Warn("Rejecting viewer", zap.Error(err))
		conn.Close()
		return
	}

	go session.WritePump()
	session.ReadPump()
}
