package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownGrace = 5 * time.Second

// Server is the terminal's local status listener.
type Server struct {
	addr   string
	http   *http.Server
	logger *zap.Logger
	ready  chan net.Addr
}

// NewServer builds a server for addr. Nothing is bound until Run.
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		addr: addr,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
		},
		logger: logger,
		ready:  make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once Run is listening.
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

// Run binds the address and serves until ctx ends. A bind failure is returned directly.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status server: listen %s: %w", s.addr, err)
	}
	s.logger.Info("status server listening", zap.String("addr", ln.Addr().String()))
	s.ready <- ln.Addr()

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
