package chat

import (
	"log/slog"
	"net"
)

type Server struct {
	cfg      Config
	logger   *slog.Logger
	reg      *Registry
	listener net.Listener
}

func NewServer(cfg Config, logger *slog.Logger) *Server {
	cfg = cfg.sanitized()
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		reg:    NewRegistry(cfg, logger),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go s.reg.Run()
	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the listen address, useful when configured with port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}

	// In-flight sessions terminate on their next failed read.
	s.reg.Stop()
	s.reg.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Closed listener lands here on shutdown.
			return
		}

		s.logger.Info("client connected", "addr", conn.RemoteAddr().String())

		c := &Client{
			Conn: conn,
			Out:  make(chan []byte, s.cfg.SendBuffer),
		}
		go HandleSession(c, s.reg.Events(), s.cfg, s.logger)
	}
}
