package chat

import "strings"

type CommandKind int

const (
	CmdText CommandKind = iota // plain chat text, not a command
	CmdHelp
	CmdNick
	CmdCreate
	CmdJoin
	CmdRooms
	CmdLeave
	CmdWho
	CmdQuit
	CmdUnknown
)

// Command is the decoded form of one inbound line of text.
type Command struct {
	Kind CommandKind
	Arg  string
	Raw  string // the command token as typed, kept for unknown-command notices
}

// ParseCommand classifies decoded text as a slash command or plain chat text.
// Command names are case-insensitive; the remainder of the line is the
// argument. Room arguments get a "#" prefix when the user omitted it.
func ParseCommand(text string) Command {
	if !strings.HasPrefix(text, "/") {
		return Command{Kind: CmdText, Arg: text}
	}

	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/help":
		return Command{Kind: CmdHelp}
	case "/nick":
		return Command{Kind: CmdNick, Arg: arg}
	case "/create":
		return Command{Kind: CmdCreate, Arg: normalizeRoomName(arg)}
	case "/join":
		return Command{Kind: CmdJoin, Arg: normalizeRoomName(arg)}
	case "/rooms", "/list":
		return Command{Kind: CmdRooms}
	case "/leave":
		return Command{Kind: CmdLeave}
	case "/who":
		return Command{Kind: CmdWho}
	case "/quit", "/exit":
		return Command{Kind: CmdQuit}
	default:
		return Command{Kind: CmdUnknown, Raw: name}
	}
}

func normalizeRoomName(name string) string {
	if name == "" || strings.HasPrefix(name, "#") {
		return name
	}
	return "#" + name
}
