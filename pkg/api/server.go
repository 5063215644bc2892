// Package api exposes the chat agent and its transaction summary over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finance-agent/pkg/assistant"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/session"
	"finance-agent/pkg/snapshot"
	"finance-agent/pkg/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Responder answers one chat message within a session.
type Responder interface {
	Respond(ctx context.Context, sess *session.Session, req assistant.Request) assistant.Reply
}

// Snapshots gives read and refresh access to the transaction buffer.
type Snapshots interface {
	Current(ctx context.Context) snapshot.Snapshot
	Refresh(ctx context.Context) snapshot.Snapshot
}

// Archive reads persisted conversation turns back for users whose session
// is no longer held in memory.
type Archive interface {
	Recent(ctx context.Context, userID string, n int) ([]store.ConversationRecord, error)
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":5010")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses. It must exceed the generation timeout.
	WriteTimeout time.Duration

	// CORSEnabled adds CORS headers and answers preflight requests
	CORSEnabled bool

	// AllowedOrigins lists the accepted origins; "*" allows any
	AllowedOrigins []string

	// Namespace prefixes the HTTP metric names
	Namespace string

	// Registerer receives the HTTP metrics (default: prometheus.DefaultRegisterer)
	Registerer prometheus.Registerer

	// Gatherer backs GET /metrics (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer

	// Archive answers /api/history when the session has expired (optional)
	Archive Archive

	// ArchiveLimit caps the turns read from Archive
	ArchiveLimit int
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:        ":5010",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		CORSEnabled:    true,
		AllowedOrigins: []string{"*"},
		Namespace:      "finance_agent",
		ArchiveLimit:   50,
	}
}

// Server routes chat and summary requests.
type Server struct {
	agent     Responder
	sessions  *session.Store
	snapshots Snapshots
	config    ServerConfig
	logger    *logging.Logger

	router *mux.Router
	server *http.Server
}

// NewServer builds the router and its middleware chain.
func NewServer(agent Responder, sessions *session.Store, snapshots Snapshots, config ServerConfig) (*Server, error) {
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	httpMetrics, err := newHTTPMetrics(config.Namespace, config.Registerer)
	if err != nil {
		return nil, err
	}

	s := &Server{
		agent:     agent,
		sessions:  sessions,
		snapshots: snapshots,
		config:    config,
		logger:    logging.L().Named("api"),
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, httpMetrics.middleware, s.recoveryMiddleware)
	if config.CORSEnabled {
		r.Use(corsMiddleware(config.AllowedOrigins))
	}

	// Preflight requests only reach a route when the CORS middleware is
	// there to answer them.
	methods := func(m string) []string {
		if config.CORSEnabled {
			return []string{m, http.MethodOptions}
		}
		return []string{m}
	}

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/chat", s.handleChat).Methods(methods(http.MethodPost)...)
	r.HandleFunc("/api/chat", s.handleChat).Methods(methods(http.MethodPost)...)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(methods(http.MethodGet)...)
	r.HandleFunc("/api/insights", s.handleInsights).Methods(methods(http.MethodGet)...)
	r.HandleFunc("/api/history", s.handleHistory).Methods(methods(http.MethodGet)...)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(methods(http.MethodPost)...)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.router = r
	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
