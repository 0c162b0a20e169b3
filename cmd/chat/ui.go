package main

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jroimartin/gocui"

	"github.com/rtmr01/FCCPD/internal/chat"
)

// ChatUI is the terminal front end: a message log, a status bar, and an
// input field. All server traffic goes through the frame codec.
type ChatUI struct {
	gui        *gocui.Gui
	conn       net.Conn
	addr       string
	msgView    string
	statusView string
	inputView  string
}

func NewChatUI(conn net.Conn, addr string) (*ChatUI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	ui := &ChatUI{
		gui:        g,
		conn:       conn,
		addr:       addr,
		msgView:    "messages",
		statusView: "status",
		inputView:  "input",
	}

	g.SetManagerFunc(ui.layout)
	return ui, nil
}

func (ui *ChatUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(ui.msgView, 0, 0, maxX-1, maxY-6); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	if v, err := g.SetView(ui.statusView, 0, maxY-5, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		fmt.Fprintf(v, "Connected to %s | Ctrl-C: quit | /help: commands", ui.addr)
	}

	if v, err := g.SetView(ui.inputView, 0, maxY-3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true

		if _, err := g.SetCurrentView(ui.inputView); err != nil {
			return err
		}
	}

	return nil
}

func (ui *ChatUI) keybindings() error {
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(_ *gocui.Gui, _ *gocui.View) error {
			return gocui.ErrQuit
		}); err != nil {
		return err
	}

	return ui.gui.SetKeybinding(ui.inputView, gocui.KeyEnter, gocui.ModNone, ui.handleInput)
}

func (ui *ChatUI) handleInput(_ *gocui.Gui, v *gocui.View) error {
	text := strings.TrimSpace(v.Buffer())
	v.Clear()
	if err := v.SetCursor(0, 0); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	if err := chat.WriteFrame(ui.conn, []byte(text), chat.DefaultMaxPayload); err != nil {
		if errors.Is(err, chat.ErrFrameTooLarge) {
			ui.append("[SYS] Message too large, not sent.")
			return nil
		}
		ui.append("[SYS] Send failed: " + err.Error())
		return nil
	}

	if chat.ParseCommand(text).Kind == chat.CmdQuit {
		return gocui.ErrQuit
	}
	return nil
}

// readLoop decodes server frames and appends them to the message log until
// the connection closes.
func (ui *ChatUI) readLoop() {
	for {
		payload, err := chat.ReadFrame(ui.conn, chat.DefaultMaxPayload)
		if err != nil {
			ui.append("[SYS] Disconnected from server.")
			return
		}
		ui.append(string(payload))
	}
}

func (ui *ChatUI) append(line string) {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.msgView)
		if err != nil {
			return err
		}
		fmt.Fprintln(v, line)
		return nil
	})
}

func (ui *ChatUI) Run() error {
	if err := ui.keybindings(); err != nil {
		return err
	}

	if err := ui.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

func (ui *ChatUI) Close() {
	ui.gui.Close()
}
