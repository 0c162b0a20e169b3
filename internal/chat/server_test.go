package chat

import (
	"net"
	"strings"
	"testing"
	"time"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := sessionTestConfig()
	cfg.Addr = "127.0.0.1:0"
	s := NewServer(cfg, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func dialChat(t *testing.T, s *Server, nick string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	handshake(t, conn, nick)
	return conn
}

// expectNoRelay drains conn for wait and fails if a frame with the given
// prefix shows up. Read timeouts mean nothing arrived, which is the success
// case.
func expectNoRelay(t *testing.T, conn net.Conn, prefix string, wait time.Duration) {
	t.Helper()
	end := time.Now().Add(wait)
	for time.Now().Before(end) {
		_ = conn.SetReadDeadline(end)
		payload, err := ReadFrame(conn, DefaultMaxPayload)
		if err != nil {
			return
		}
		if strings.HasPrefix(string(payload), prefix) {
			t.Fatalf("unexpected frame %q", payload)
		}
	}
}

func TestServerEndToEndRelay(t *testing.T) {
	s := startTestServer(t)

	alice := dialChat(t, s, "alice")
	bob := dialChat(t, s, "bob")
	carol := dialChat(t, s, "carol")

	writeFrameT(t, carol, "/join #jogos")
	readFrameWithPrefix(t, carol, "[SYS] You joined #jogos.")

	writeFrameT(t, alice, "Olá a todos!")

	want := "[#geral] alice: Olá a todos!"
	if got := readFrameWithPrefix(t, bob, "[#geral]"); got != want {
		t.Fatalf("bob received %q, want %q", got, want)
	}
	if got := readFrameWithPrefix(t, alice, "[#geral]"); got != want {
		t.Fatalf("alice echo %q, want %q", got, want)
	}
	expectNoRelay(t, carol, "[#geral]", 150*time.Millisecond)
}

func TestServerRoomLifecycleOverTCP(t *testing.T) {
	s := startTestServer(t)

	alice := dialChat(t, s, "alice")

	writeFrameT(t, alice, "/create temp")
	readFrameWithPrefix(t, alice, "[SYS] Room #temp is ready.")

	writeFrameT(t, alice, "/join temp")
	readFrameWithPrefix(t, alice, "[SYS] You joined #temp.")

	writeFrameT(t, alice, "/rooms")
	got := readFrameWithPrefix(t, alice, "[SYS] Rooms:")
	if !strings.Contains(got, "#temp (1)") {
		t.Fatalf("rooms listing missing #temp: %q", got)
	}

	writeFrameT(t, alice, "/leave")
	readFrameWithPrefix(t, alice, "[SYS] You left #temp.")

	writeFrameT(t, alice, "/rooms")
	got = readFrameWithPrefix(t, alice, "[SYS] Rooms:")
	if strings.Contains(got, "#temp") {
		t.Fatalf("reaped room still listed: %q", got)
	}
}

func TestServerStopClosesListener(t *testing.T) {
	cfg := sessionTestConfig()
	cfg.Addr = "127.0.0.1:0"
	s := NewServer(cfg, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	addr := s.Addr().String()

	s.Stop()

	if conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		conn.Close()
		t.Fatal("expected dial to fail after Stop")
	}
}
