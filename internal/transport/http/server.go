package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"volscan/internal/infrastructure"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes the health and metrics endpoints while a run is in progress
type Server struct {
	srv    *http.Server
	logger *slog.Logger
	errc   chan error
}

// NewServer creates the HTTP server; Start must be called to listen
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: infrastructure.WithComponent(logger, "http"),
		errc:   make(chan error, 1),
	}
}

// Start binds the address and serves in the background. The bound address is returned.
func (s *Server) Start(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			s.errc <- err
		}
		close(s.errc)
	}()

	addr := ln.Addr().String()
	s.logger.InfoContext(ctx, "metrics server listening", slog.String("address", addr))
	return addr, nil
}

// Shutdown stops the server, waiting up to shutdownTimeout for open requests
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-s.errc
}
