package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/rtmr01/FCCPD/internal/bridge"
)

type Options struct {
	Verbose  []bool `short:"v" long:"verbose" description:"Show verbose logging."`
	Bind     string `long:"bind" description:"Host and port for the WebSocket endpoint." default:":8765"`
	ChatAddr string `long:"chat-addr" description:"Address of the chat server." default:"127.0.0.1:5050"`
	Origins  string `long:"origins" description:"Comma-separated allowed origins, or * for any." default:"*"`
}

var logLevels = []slog.Level{
	slog.LevelWarn,
	slog.LevelInfo,
	slog.LevelDebug,
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return
	}

	numVerbose := len(options.Verbose)
	if numVerbose >= len(logLevels) {
		numVerbose = len(logLevels) - 1
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevels[numVerbose],
	}))

	b := bridge.New(bridge.Config{
		ChatAddr:       options.ChatAddr,
		AllowedOrigins: strings.Split(options.Origins, ","),
	}, logger)

	logger.Info("bridge listening", "bind", options.Bind, "chat", options.ChatAddr)
	if err := http.ListenAndServe(options.Bind, b.Handler()); err != nil {
		logger.Error("bridge stopped", "error", err)
		os.Exit(1)
	}
}
