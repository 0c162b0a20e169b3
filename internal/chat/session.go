package chat

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// writerDrainTimeout bounds how long session teardown waits for queued
// frames to flush; a peer that stopped reading must not pin the goroutine.
const writerDrainTimeout = time.Second

const helpText = `Commands:
/help           - Show this help
/nick <name>    - Change your nickname
/create <room>  - Create a room
/join <room>    - Join a room (created on demand)
/rooms          - List rooms and member counts
/leave          - Leave the current room
/who            - List members of the current room
/quit           - Disconnect
Anything else is sent to your current room.`

// HandleSession runs the per-connection state machine: greet, read the
// nickname, register with the registry (which auto-joins the default room),
// then process inbound frames in arrival order until quit or a read error.
func HandleSession(c *Client, events chan<- Event, cfg Config, logger *slog.Logger) {
	cfg = cfg.sanitized()
	if logger == nil {
		logger = slog.Default()
	}

	var writerDone <-chan struct{}

	registered := false
	defer func() {
		if registered {
			// The registry owns cleanup from here: room removal, disconnect
			// notice, and closing the outbound queue, exactly once.
			events <- Event{Type: EventUnregister, Client: c}
		} else {
			close(c.Out)
		}
		// Let queued frames (the /quit farewell in particular) reach the
		// peer before tearing down the connection.
		select {
		case <-writerDone:
		case <-time.After(writerDrainTimeout):
		}
		_ = c.Conn.Close()
	}()

	writerDone = StartOutboundWriter(c.Conn, c.Out, cfg.MaxFrameSize)

	// Nickname handshake loop.
	sendSys(c, "Connected. Enter your nickname:")
	for {
		payload, err := ReadFrame(c.Conn, cfg.MaxFrameSize)
		if err != nil {
			return
		}

		reply := make(chan error, 1)
		events <- Event{
			Type:      EventRegister,
			Client:    c,
			Name:      string(payload),
			ReplyChan: reply,
		}
		if regErr := <-reply; regErr != nil {
			sendSys(c, "Invalid nickname. It must be non-empty and at most 32 characters. Try again:")
			continue
		}
		break
	}
	registered = true

	limiter := newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval)

	// Main input loop.
	for {
		payload, err := ReadFrame(c.Conn, cfg.MaxFrameSize)
		if err != nil {
			// c.Nick belongs to the registry goroutine, so log the address.
			if errors.Is(err, ErrProtocol) {
				logger.Warn("closing session", "addr", c.Conn.RemoteAddr().String(), "error", err)
			} else if err != io.EOF {
				logger.Info("session read failed", "addr", c.Conn.RemoteAddr().String(), "error", err)
			}
			return
		}

		text := strings.TrimSpace(string(payload))
		if text == "" {
			continue
		}
		if !limiter.allow() {
			sendSys(c, "You are sending messages too fast. Message dropped.")
			continue
		}

		cmd := ParseCommand(text)
		switch cmd.Kind {
		case CmdHelp:
			sendSys(c, helpText)
		case CmdNick:
			if cmd.Arg == "" {
				sendSys(c, "Usage: /nick <name>")
				continue
			}
			events <- Event{Type: EventNick, Client: c, Name: cmd.Arg}
		case CmdCreate:
			if cmd.Arg == "" {
				sendSys(c, "Usage: /create <room>")
				continue
			}
			events <- Event{Type: EventCreate, Client: c, Name: cmd.Arg}
		case CmdJoin:
			if cmd.Arg == "" {
				sendSys(c, "Usage: /join <room>")
				continue
			}
			events <- Event{Type: EventJoin, Client: c, Name: cmd.Arg}
		case CmdRooms:
			events <- Event{Type: EventRooms, Client: c}
		case CmdLeave:
			events <- Event{Type: EventLeave, Client: c}
		case CmdWho:
			events <- Event{Type: EventWho, Client: c}
		case CmdQuit:
			sendSys(c, "Disconnecting...")
			return
		case CmdUnknown:
			sendSys(c, "Unknown command "+cmd.Raw+". Use /help.")
		case CmdText:
			events <- Event{Type: EventBroadcast, Client: c, Text: cmd.Arg}
		}
	}
}
