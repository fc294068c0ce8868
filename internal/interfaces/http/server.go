// Package http exposes the engine over a local-only JSON API plus a
// websocket state push. Mutating routes map one-to-one onto the operator
// commands; everything else is read-only.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the local-only defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server wires the router, middleware and handlers around one engine.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	hub      *Hub
	config   ServerConfig
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// NewServer creates the HTTP server. It probes the port up front so a busy
// port fails at startup rather than at first request.
func NewServer(config ServerConfig, handlers *Handlers) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", config.Port, err)
	}
	listener.Close()

	s := &Server{
		router:   mux.NewRouter(),
		handlers: handlers,
		hub:      NewHub(),
		config:   config,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s, nil
}

// Hub returns the websocket hub so the engine's update hook can feed it.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	// Websocket upgrade and metrics scrape bypass the JSON content type.
	s.router.HandleFunc("/ws", s.hub.Serve).Methods("GET")
	s.router.Handle("/metrics", s.handlers.Metrics()).Methods("GET")

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/api/state", s.handlers.State).Methods("GET")
	api.HandleFunc("/api/assets/{symbol}", s.handlers.Asset).Methods("GET")
	api.HandleFunc("/api/commit", s.handlers.Commit).Methods("POST")
	api.HandleFunc("/api/trades", s.handlers.Trades).Methods("GET")
	api.HandleFunc("/api/trades", s.handlers.LogTrade).Methods("POST")
	api.HandleFunc("/api/session/end", s.handlers.EndSession).Methods("POST")
	api.HandleFunc("/api/day/reset", s.handlers.ResetDay).Methods("POST")
	api.HandleFunc("/api/override", s.handlers.Override).Methods("POST")
	api.HandleFunc("/api/refresh", s.handlers.Refresh).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

// corsMiddleware allows localhost origins only; the server never binds
// beyond loopback by default.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.Address()).Msg("http server listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the websocket hub.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
