// Package transport is the front door: it owns the TCP listener, enforces
// the connection cap, wraps each accepted socket in server-side TLS, and
// hands it to the session loop.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/secirc/secirc/internal/v1/logging"
	"github.com/secirc/secirc/internal/v1/session"
)

// Server accepts chat connections.
type Server struct {
	addr      string
	tlsConfig *tls.Config
	handler   *session.Server
	maxConns  int

	mu       sync.Mutex
	listener net.Listener
	closed   bool

	wg sync.WaitGroup
}

// NewServer builds the front door from certificate files. TLS 1.2 is the
// floor; plaintext connections are never accepted.
func NewServer(addr, certFile, keyFile string, maxConns int, handler *session.Server) (*Server, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading server certificate: %w", err)
	}
	return &Server{
		addr: addr,
		tlsConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
		handler:  handler,
		maxConns: maxConns,
	}, nil
}

// Listen binds the TCP port and serves until Shutdown closes the listener.
func (s *Server) Listen(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.addr, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server already shut down")
	}
	s.listener = ln
	s.mu.Unlock()

	logging.Info(ctx, "Listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		if s.handler.Clients().Count() >= s.maxConns {
			logging.Warn(ctx, "Connection limit reached, rejecting",
				zap.String("remoteAddr", conn.RemoteAddr().String()),
				zap.Int("maxConnections", s.maxConns))
			conn.Close()
			continue
		}

		tlsConn := tls.Server(conn, s.tlsConfig)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler.Handle(ctx, tlsConn)
		}()
	}
}

// Addr returns the bound listener address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Accepting reports whether the listener is up, for the readiness probe.
func (s *Server) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil && !s.closed
}

// Shutdown stops accepting, disconnects every client, and waits for the
// session goroutines to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range s.handler.Clients().All() {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
