package main

import (
	"fmt"
	"net"
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Addr string `long:"addr" description:"Address of the chat server." default:"127.0.0.1:5050"`
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return
	}

	conn, err := net.Dial("tcp", options.Addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to %s: %v\n", options.Addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	ui, err := NewChatUI(conn, options.Addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start UI: %v\n", err)
		os.Exit(1)
	}

	go ui.readLoop()

	// Restore the terminal before reporting any UI error.
	err = ui.Run()
	ui.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
