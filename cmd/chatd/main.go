package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rtmr01/FCCPD/internal/chat"
)

type Options struct {
	Verbose     []bool `short:"v" long:"verbose" description:"Show verbose logging."`
	Addr        string `long:"addr" description:"Host and port to listen on."`
	MetricsAddr string `long:"metrics-addr" description:"Host and port for the Prometheus /metrics endpoint."`
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

	cfg := chat.ConfigFromEnv()
	if options.Addr != "" {
		cfg.Addr = options.Addr
	}
	if options.MetricsAddr != "" {
		cfg.MetricsAddr = options.MetricsAddr
	}

	srv := chat.NewServer(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	srv.Stop()
}
