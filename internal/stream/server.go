// Package stream serves the WebSocket frame stream: clients send landmarker
// output per video frame and receive the events and canvas state it produced.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kpatel2913/Faceable/internal/bus"
	"github.com/kpatel2913/Faceable/internal/config"
	"github.com/kpatel2913/Faceable/internal/logging"
	"github.com/kpatel2913/Faceable/internal/metrics"
)

const (
	shutdownTimeout = 5 * time.Second

	// defaultLogLimit entries are returned by /logs without a limit parameter.
	defaultLogLimit = 100
)

// LogHistory is the recent log output served on /logs.
type LogHistory interface {
	GetHistory(limit int) []logging.LogEntry
	GetLogPath() string
}

// Server accepts frame streams over WebSocket. Each connection gets its own
// Session built from the session config current at connect time.
type Server struct {
	cfg      config.ServerConfig
	bus      *bus.EventBus
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	sessionCfg SessionConfig
	conns      map[*websocket.Conn]string
	logs       LogHistory
}

// NewServer creates a server. Streams opened later pick up SetSessionConfig changes.
func NewServer(cfg config.ServerConfig, sessionCfg SessionConfig, b *bus.EventBus, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		bus:        b,
		logger:     logger.With().Str("component", "stream").Logger(),
		sessionCfg: sessionCfg,
		conns:      make(map[*websocket.Conn]string),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin(),
	}
	return s
}

// SessionConfigFromConfig builds the per-stream settings from the loaded config.
func SessionConfigFromConfig(cfg *config.Config) SessionConfig {
	return SessionConfig{
		Engine:  cfg.Engine(),
		Palette: cfg.Canvas.Palette,
		MaxFPS:  cfg.Server.MaxFPS,
	}
}

// checkOrigin allows every origin for "*", the listed origins otherwise, and
// falls back to the same-origin check when none are configured.
func (s *Server) checkOrigin() func(r *http.Request) bool {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		return nil
	}
	if slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

// SetSessionConfig replaces the settings used for streams opened from now on.
func (s *Server) SetSessionConfig(cfg SessionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionCfg = cfg
}

func (s *Server) currentSessionConfig() SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionCfg
}

// SetLogHistory enables the /logs endpoint. Call before Handler.
func (s *Server) SetLogHistory(h LogHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = h
}

// ActiveSessions returns the number of open streams.
func (s *Server) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Handler returns the HTTP routes: the WebSocket endpoint, health, metrics
// and, with a log history set, recent logs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WSPath, s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle(s.cfg.MetricsPath, promhttp.Handler())

	s.mu.RLock()
	logs := s.logs
	s.mu.RUnlock()
	if logs != nil {
		mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
			s.handleLogs(w, r, logs)
		})
	}
	return mux
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then closes open streams and
// shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Str("ws", s.cfg.WSPath).Msg("Stream server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("Stream server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.closeAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// closeAll sends a going-away close frame to every open stream. Hijacked
// connections are not tracked by http.Server.Shutdown.
func (s *Server) closeAll() {
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.ActiveSessions(),
	})
}

// handleLogs serves the most recent log entries, oldest first.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, logs LogHistory) {
	limit := defaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"path":    logs.GetLogPath(),
		"entries": logs.GetHistory(limit),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if s.cfg.ReadLimit > 0 {
		conn.SetReadLimit(s.cfg.ReadLimit)
	}

	sess := NewSession(s.currentSessionConfig(), s.bus, s.logger, time.Now())
	log := s.logger.With().Str("session", sess.ID).Logger()

	s.mu.Lock()
	s.conns[conn] = sess.ID
	s.mu.Unlock()
	s.bus.PublishSync(bus.Event{Type: bus.EventTypeSessionStarted, Data: map[string]any{"session": sess.ID}})
	log.Info().Str("remote", r.RemoteAddr).Msg("Stream opened")

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		stats := sess.Stats()
		s.bus.PublishSync(bus.Event{Type: bus.EventTypeSessionEnded, Data: map[string]any{"session": sess.ID}})
		log.Info().
			Int64("frames", stats.Frames).
			Int64("clamped_timestamps", stats.ClampedTimestamps).
			Msg("Stream closed")
	}()

	if err := s.write(conn, sess.Hello()); err != nil {
		log.Warn().Err(err).Msg("Failed to send hello")
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Stream read error")
			}
			return
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			sess.drop(metrics.ReasonMalformed)
			if err := s.write(conn, ErrorMessage{Type: TypeError, Message: err.Error()}); err != nil {
				return
			}
			continue
		}

		for _, reply := range sess.Handle(msg, time.Now()) {
			if err := s.write(conn, reply); err != nil {
				log.Warn().Err(err).Msg("Stream write failed")
				return
			}
		}
	}
}

// write sends one JSON text message. Only the connection's read loop writes.
func (s *Server) write(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
