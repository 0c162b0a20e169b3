// Package bridge translates browser WebSocket messages 1:1 into the chat
// server's length-prefixed frame protocol and back. Each WebSocket client
// gets its own dedicated TCP connection to the chat server; the bridge never
// interprets the text it relays.
package bridge

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rtmr01/FCCPD/internal/chat"
)

// MaxBridgePayload caps relayed frames at 8 MiB on the bridge side.
const MaxBridgePayload = 8 << 20

// Config holds the bridge settings.
type Config struct {
	ChatAddr       string
	AllowedOrigins []string
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		ChatAddr:       "127.0.0.1:5050",
		AllowedOrigins: []string{"http://localhost:8080"},
		DialTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

type Bridge struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	allowAll bool
	allowed  map[string]struct{}
}

func New(cfg Config, logger *slog.Logger) *Bridge {
	def := DefaultConfig()
	if cfg.ChatAddr == "" {
		cfg.ChatAddr = def.ChatAddr
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}

	b := &Bridge{
		cfg:    cfg,
		logger: logger,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.allowed, b.allowAll = normalizeOrigins(cfg.AllowedOrigins, b.logger)
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     b.checkOrigin,
	}
	return b
}

// Handler returns the bridge's HTTP routes: the WebSocket endpoint on /ws
// and a plain-text health check on /.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", b.healthHandler)
	mux.HandleFunc("/ws", b.wsHandler)
	return mux
}

func (b *Bridge) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("chat bridge is running"))
}

func (b *Bridge) wsHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	tcp, err := net.DialTimeout("tcp", b.cfg.ChatAddr, b.cfg.DialTimeout)
	if err != nil {
		b.logger.Error("chat server unreachable", "addr", b.cfg.ChatAddr, "error", err)
		_ = ws.WriteMessage(websocket.TextMessage, []byte("[SYS] Chat server unreachable."))
		_ = ws.Close()
		return
	}

	b.logger.Info("bridge session opened", "ws", r.RemoteAddr, "chat", b.cfg.ChatAddr)
	ws.SetReadLimit(MaxBridgePayload)

	// Either pump failing tears down both ends; the other pump then exits on
	// its next read error.
	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			_ = tcp.Close()
			_ = ws.Close()
			b.logger.Info("bridge session closed", "ws", r.RemoteAddr)
		})
	}

	go b.pumpWSToTCP(ws, tcp, closeBoth)
	b.pumpTCPToWS(ws, tcp, closeBoth)
}

// pumpTCPToWS decodes frames from the chat server and forwards the payloads
// as WebSocket text messages.
func (b *Bridge) pumpTCPToWS(ws *websocket.Conn, tcp net.Conn, done func()) {
	defer done()
	for {
		payload, err := chat.ReadFrame(tcp, MaxBridgePayload)
		if err != nil {
			return
		}
		_ = ws.SetWriteDeadline(time.Now().Add(b.cfg.WriteTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// pumpWSToTCP wraps each WebSocket message in a frame for the chat server.
func (b *Bridge) pumpWSToTCP(ws *websocket.Conn, tcp net.Conn, done func()) {
	defer done()
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if err := chat.WriteFrame(tcp, message, MaxBridgePayload); err != nil {
			return
		}
	}
}
