// Package gateway is the transport front-end: it accepts concurrent client
// sessions over HTTP, WebSocket, and stdio, deserializes JSON-RPC envelopes,
// and feeds them to the dispatcher. A thin shim: all tool semantics live
// behind the dispatcher.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"ghbridge/internal/domain"
)

// ErrInvalidPort is returned when the server port is not in 0..65535.
var ErrInvalidPort = errors.New("gateway port must be 0-65535")

// Server is the HTTP surface. Port 0 means pick a random port.
type Server struct {
	cfg      *domain.ServerConfig
	handler  *Handler
	server   *http.Server
	logger   *slog.Logger
	addr     string
	addrMu   sync.RWMutex
	listener net.Listener
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the slog logger. Nil uses slog.Default().
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer builds the gateway. Routes: / (health), /mcp (JSON-RPC over
// HTTP POST), /ws (JSON-RPC over WebSocket). Bearer auth wraps everything
// when an auth token is configured.
func NewServer(cfg *domain.ServerConfig, handler *Handler, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = &domain.ServerConfig{Port: 8080}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, ErrInvalidPort
	}

	s := &Server{cfg: cfg, handler: handler}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/mcp", s.handleHTTP)
	mux.HandleFunc("/ws", s.handleWS)

	s.server = &http.Server{
		Handler:           BearerAuth(cfg.AuthToken)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Addr returns the bound address after Run has started. Empty before Run.
func (s *Server) Addr() string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// Handler returns the HTTP handler (auth + routes), for testing without
// binding a socket.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleHTTP answers one JSON-RPC message per POST. Notifications get 202
// with no body.
func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var msg JSONRPCMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(&JSONRPCMessage{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: codeParseError, Message: "parse error"},
		})
		return
	}

	resp := s.handler.Handle(r.Context(), &msg)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log().Error("response write failed", "error", err)
	}
}

// Run listens on the configured port and serves until shutdown is closed.
// Returns nil on clean shutdown.
func (s *Server) Run(shutdown <-chan struct{}) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.cfg.Port))
	if err != nil {
		return err
	}
	s.addrMu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.addrMu.Unlock()
	s.log().Info("gateway listening", "addr", s.addr)

	done := make(chan error, 1)
	go func() {
		done <- s.server.Serve(ln)
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	<-done
	return nil
}
