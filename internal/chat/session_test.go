package chat

import (
	"net"
	"strings"
	"testing"
	"time"
)

func sessionTestConfig() Config {
	cfg := DefaultConfig()
	// Tests fire commands much faster than a human would.
	cfg.RateLimit.Burst = 1000
	return cfg
}

// startSession wires a session to the registry over an in-memory pipe and
// returns the client end of the connection.
func startSession(t *testing.T, r *Registry, cfg Config) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	c := &Client{Conn: server, Out: make(chan []byte, 64)}
	go HandleSession(c, r.Events(), cfg, nil)
	t.Cleanup(func() { client.Close() })
	return client
}

func writeFrameT(t *testing.T, conn net.Conn, text string) {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := WriteFrame(conn, []byte(text), DefaultMaxPayload); err != nil {
		t.Fatalf("WriteFrame(%q) error: %v", text, err)
	}
}

func readFrameWithPrefix(t *testing.T, conn net.Conn, prefix string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		payload, err := ReadFrame(conn, DefaultMaxPayload)
		if err != nil {
			t.Fatalf("ReadFrame while waiting for %q: %v", prefix, err)
		}
		if strings.HasPrefix(string(payload), prefix) {
			return string(payload)
		}
	}
	t.Fatalf("timeout waiting for frame with prefix %q", prefix)
	return ""
}

func handshake(t *testing.T, conn net.Conn, nick string) {
	t.Helper()
	readFrameWithPrefix(t, conn, "[SYS] Connected.")
	writeFrameT(t, conn, nick)
	readFrameWithPrefix(t, conn, "[SYS] Welcome, "+nick+"!")
	readFrameWithPrefix(t, conn, "[SYS] You joined")
}

func TestSessionHandshakeAndQuit(t *testing.T) {
	r := newTestRegistry(t)
	conn := startSession(t, r, sessionTestConfig())

	handshake(t, conn, "alice")
	writeFrameT(t, conn, "/quit")

	// The server closes the connection after /quit.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		if _, err := ReadFrame(conn, DefaultMaxPayload); err != nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("connection still open after /quit")
		}
	}
}

func TestSessionInvalidNicknameRetries(t *testing.T) {
	r := newTestRegistry(t)
	conn := startSession(t, r, sessionTestConfig())

	readFrameWithPrefix(t, conn, "[SYS] Connected.")
	writeFrameT(t, conn, "   ")
	readFrameWithPrefix(t, conn, "[SYS] Invalid nickname.")

	writeFrameT(t, conn, "alice")
	readFrameWithPrefix(t, conn, "[SYS] Welcome, alice!")
}

func TestSessionUnknownCommandAndHelp(t *testing.T) {
	r := newTestRegistry(t)
	conn := startSession(t, r, sessionTestConfig())
	handshake(t, conn, "alice")

	writeFrameT(t, conn, "/frobnicate")
	readFrameWithPrefix(t, conn, "[SYS] Unknown command /frobnicate.")

	writeFrameT(t, conn, "/help")
	got := readFrameWithPrefix(t, conn, "[SYS] Commands:")
	if !strings.Contains(got, "/join <room>") {
		t.Fatalf("help text missing /join: %q", got)
	}
}

func TestSessionRelayBetweenSessions(t *testing.T) {
	r := newTestRegistry(t)
	cfg := sessionTestConfig()

	alice := startSession(t, r, cfg)
	bob := startSession(t, r, cfg)
	handshake(t, alice, "alice")
	handshake(t, bob, "bob")

	writeFrameT(t, alice, "Olá a todos!")

	want := "[#geral] alice: Olá a todos!"
	if got := readFrameWithPrefix(t, bob, "[#geral]"); got != want {
		t.Fatalf("bob received %q, want %q", got, want)
	}
	if got := readFrameWithPrefix(t, alice, "[#geral]"); got != want {
		t.Fatalf("alice echo %q, want %q", got, want)
	}
}

func TestSessionAbruptDisconnectRemovesFromRoom(t *testing.T) {
	r := newTestRegistry(t)
	cfg := sessionTestConfig()

	alice := startSession(t, r, cfg)
	bob := startSession(t, r, cfg)
	handshake(t, alice, "alice")
	handshake(t, bob, "bob")

	// Kill bob's transport without a /quit.
	bob.Close()

	// Cleanup is asynchronous; poll /who until bob is gone.
	deadline := time.Now().Add(2 * time.Second)
	for {
		writeFrameT(t, alice, "/who")
		got := readFrameWithPrefix(t, alice, "[SYS] Members of")
		if got == "[SYS] Members of #geral: alice" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("bob still listed after disconnect: %q", got)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSessionRateLimitDropsExcessMessages(t *testing.T) {
	r := newTestRegistry(t)
	cfg := DefaultConfig()
	cfg.RateLimit.Burst = 1
	cfg.RateLimit.RefillInterval = time.Hour

	conn := startSession(t, r, cfg)
	handshake(t, conn, "alice")

	writeFrameT(t, conn, "first")
	readFrameWithPrefix(t, conn, "[#geral] alice: first")

	writeFrameT(t, conn, "second")
	readFrameWithPrefix(t, conn, "[SYS] You are sending messages too fast.")
}

func TestSessionQuitDeliversFarewell(t *testing.T) {
	r := newTestRegistry(t)
	conn := startSession(t, r, sessionTestConfig())
	handshake(t, conn, "alice")

	writeFrameT(t, conn, "/quit")

	// The farewell must arrive before the connection closes; the session
	// waits for the outbound writer to drain before closing.
	readFrameWithPrefix(t, conn, "[SYS] Disconnecting...")
}
