package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const maxNickLen = 32

// Registry owns every room and member set. All mutation flows through the
// event channel and is applied by the Run goroutine, so each event handler is
// its own critical section: membership and the client's room pointer always
// change together.
type Registry struct {
	cfg      Config
	events   chan Event
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *slog.Logger
	defaults map[string]bool
}

func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	cfg = cfg.sanitized()
	if logger == nil {
		logger = slog.Default()
	}
	defaults := make(map[string]bool, len(cfg.DefaultRooms))
	for _, name := range cfg.DefaultRooms {
		defaults[name] = true
	}
	return &Registry{
		cfg:      cfg,
		events:   make(chan Event, cfg.EventBuffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
		defaults: defaults,
	}
}

func (r *Registry) Events() chan<- Event {
	return r.events
}

// Stop signals the Run loop to exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop has completely finished.
func (r *Registry) Wait() {
	<-r.doneCh
}

func (r *Registry) Run() {
	defer close(r.doneCh)
	// Single-writer ownership: these maps are only accessed in this goroutine.
	rooms := make(map[string]*Room)
	for _, name := range r.cfg.DefaultRooms {
		rooms[name] = newRoom(name)
	}
	clients := make(map[*Client]struct{})

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			eventType := ""

			switch ev.Type {
			case EventRegister:
				eventType = "register"
				r.handleRegister(rooms, clients, ev)
				ConnectedClients.Set(float64(len(clients)))
			case EventNick:
				eventType = "nick"
				r.handleNick(rooms, ev)
			case EventCreate:
				eventType = "create"
				r.handleCreate(rooms, ev)
			case EventJoin:
				eventType = "join"
				r.handleJoin(rooms, ev)
			case EventLeave:
				eventType = "leave"
				r.handleLeave(rooms, ev)
			case EventRooms:
				eventType = "rooms"
				r.handleRooms(rooms, ev)
			case EventWho:
				eventType = "who"
				r.handleWho(rooms, ev)
			case EventBroadcast:
				eventType = "broadcast"
				r.handleBroadcast(rooms, ev)
			case EventUnregister:
				eventType = "unregister"
				r.handleUnregister(rooms, clients, ev)
				ConnectedClients.Set(float64(len(clients)))
			}

			ActiveRooms.Set(float64(len(rooms)))
			MessagesTotal.WithLabelValues(eventType).Inc()
			EventProcessingDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) handleRegister(rooms map[string]*Room, clients map[*Client]struct{}, ev Event) {
	defer func() {
		// ReplyChan is only used for register.
		if ev.ReplyChan != nil {
			close(ev.ReplyChan)
		}
	}()

	nick, err := validateNick(ev.Name)
	if err != nil {
		if ev.ReplyChan != nil {
			ev.ReplyChan <- err
		}
		return
	}

	ev.Client.Nick = nick
	clients[ev.Client] = struct{}{}

	r.logger.Info("client registered", "nick", nick)

	sendSys(ev.Client, fmt.Sprintf("Welcome, %s! Use /help to list commands.", nick))
	r.moveToRoom(rooms, ev.Client, r.cfg.AutoJoinRoom)

	if ev.ReplyChan != nil {
		ev.ReplyChan <- nil
	}
}

func (r *Registry) handleNick(rooms map[string]*Room, ev Event) {
	nick, err := validateNick(ev.Name)
	if err != nil {
		sendSys(ev.Client, "Invalid nickname. It must be non-empty and at most 32 characters.")
		return
	}

	old := ev.Client.Nick
	ev.Client.Nick = nick
	sendSys(ev.Client, "You are now known as "+nick+".")
	if ev.Client.Room != "" {
		r.broadcastRoom(rooms, ev.Client.Room, "[SYS] "+old+" is now known as "+nick+".", ev.Client)
	}
}

func (r *Registry) handleCreate(rooms map[string]*Room, ev Event) {
	// Idempotent: creating an existing room is not an error.
	if _, exists := rooms[ev.Name]; !exists {
		rooms[ev.Name] = newRoom(ev.Name)
		r.logger.Info("room created", "room", ev.Name, "by", ev.Client.Nick)
	}
	sendSys(ev.Client, fmt.Sprintf("Room %s is ready. Use /join %s to enter.", ev.Name, ev.Name))
}

func (r *Registry) handleJoin(rooms map[string]*Room, ev Event) {
	if ev.Client.Room == ev.Name {
		sendSys(ev.Client, "You are already in "+ev.Name+".")
		return
	}
	r.moveToRoom(rooms, ev.Client, ev.Name)
}

func (r *Registry) handleLeave(rooms map[string]*Room, ev Event) {
	room, err := r.requireRoom(rooms, ev.Client)
	if err != nil {
		r.replyRoomError(ev.Client, err)
		return
	}
	left := room.name
	r.detach(rooms, ev.Client, fmt.Sprintf("[SYS] %s left the room.", ev.Client.Nick))
	sendSys(ev.Client, fmt.Sprintf("You left %s. Use /join <room> to enter another.", left))
}

func (r *Registry) handleRooms(rooms map[string]*Room, ev Event) {
	names := make([]string, 0, len(rooms))
	for name := range rooms {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, "Rooms:")
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s (%d)", name, len(rooms[name].members)))
	}
	sendSys(ev.Client, strings.Join(lines, "\n"))
}

func (r *Registry) handleWho(rooms map[string]*Room, ev Event) {
	room, err := r.requireRoom(rooms, ev.Client)
	if err != nil {
		r.replyRoomError(ev.Client, err)
		return
	}
	nicks := make([]string, 0, len(room.members))
	for _, m := range room.members {
		nicks = append(nicks, m.Nick)
	}
	sendSys(ev.Client, fmt.Sprintf("Members of %s: %s", room.name, strings.Join(nicks, ", ")))
}

func (r *Registry) handleBroadcast(rooms map[string]*Room, ev Event) {
	room, err := r.requireRoom(rooms, ev.Client)
	if err != nil {
		r.replyRoomError(ev.Client, err)
		return
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}
	// Chat relay echoes to the sender as well.
	line := fmt.Sprintf("[%s] %s: %s", room.name, ev.Client.Nick, text)
	r.broadcastRoom(rooms, room.name, line, nil)
}

func (r *Registry) handleUnregister(rooms map[string]*Room, clients map[*Client]struct{}, ev Event) {
	if ev.Client == nil {
		return
	}
	// Idempotent: quit and transport-error paths may both get here.
	if _, ok := clients[ev.Client]; !ok {
		return
	}
	delete(clients, ev.Client)

	r.detach(rooms, ev.Client, fmt.Sprintf("[SYS] %s disconnected.", ev.Client.Nick))
	r.logger.Info("client left", "nick", ev.Client.Nick)

	// Closing Out stops the writer goroutine gracefully.
	close(ev.Client.Out)
}

// moveToRoom removes c from its current room (if any), creates the target on
// demand, adds membership, and updates the client's room pointer. Everything
// happens inside one event handler, so concurrent joins cannot interleave.
func (r *Registry) moveToRoom(rooms map[string]*Room, c *Client, name string) {
	if c.Room != "" {
		r.detach(rooms, c, fmt.Sprintf("[SYS] %s left the room.", c.Nick))
	}

	room, ok := rooms[name]
	if !ok {
		room = newRoom(name)
		rooms[name] = room
	}
	room.add(c)
	c.Room = name

	sendSys(c, "You joined "+name+".")
	r.broadcastRoom(rooms, name, fmt.Sprintf("[SYS] %s joined the room.", c.Nick), c)
}

// detach removes c from its current room, announces line to the remaining
// members, and reaps the room when it is empty and not a default room.
func (r *Registry) detach(rooms map[string]*Room, c *Client, line string) {
	room, ok := rooms[c.Room]
	if !ok {
		c.Room = ""
		return
	}
	room.remove(c)
	c.Room = ""

	if room.empty() && !r.defaults[room.name] {
		delete(rooms, room.name)
		r.logger.Info("room reaped", "room", room.name)
		return
	}
	r.broadcastRoom(rooms, room.name, line, nil)
}

func (r *Registry) broadcastRoom(rooms map[string]*Room, name, line string, exclude *Client) {
	room, ok := rooms[name]
	if !ok {
		return
	}
	for _, m := range room.members {
		if m == exclude {
			continue
		}
		sendPayload(m, line)
	}
}

// requireRoom resolves the client's current room, failing with ErrNotInRoom
// for detached clients.
func (r *Registry) requireRoom(rooms map[string]*Room, c *Client) (*Room, error) {
	room, ok := rooms[c.Room]
	if c.Room == "" || !ok {
		return nil, ErrNotInRoom
	}
	return room, nil
}

func (r *Registry) replyRoomError(c *Client, err error) {
	if errors.Is(err, ErrNotInRoom) {
		sendSys(c, "You are not in a room. Use /join <room>.")
		return
	}
	sendSys(c, "Command failed: "+err.Error())
}

func validateNick(raw string) (string, error) {
	nick := strings.TrimSpace(raw)
	if nick == "" || utf8.RuneCountInString(nick) > maxNickLen {
		return "", ErrNicknameInvalid
	}
	return nick, nil
}

func sendSys(c *Client, text string) {
	sendPayload(c, "[SYS] "+text)
}

func sendPayload(c *Client, text string) {
	// Non-blocking send so a slow or dead client cannot stall the registry.
	select {
	case c.Out <- []byte(text):
	default:
		// Drop when the client's buffer is full.
	}
}
