// Package dashboard serves the canonical state and render angles to
// browser renderers over HTTP and a websocket push channel.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/kinematics"
	"codeberg.org/mutker/obsctl/internal/logger"
	"codeberg.org/mutker/obsctl/internal/settings"
	"codeberg.org/mutker/obsctl/internal/state"
	"github.com/gorilla/websocket"
)

const (
	readHeaderTimeout = 10 * time.Second
	controlTimeout    = 10 * time.Second
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	Store    *state.Store
	Settings *settings.Service
	Control  Controller
	Recorder Recorder
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type Server struct {
	addr     string
	store    *state.Store
	settings *settings.Service
	control  Controller
	recorder Recorder
	metrics  http.Handler

	httpServer *http.Server

	wsUpgrader websocket.Upgrader
	wsClients  map[int64]*WSClient
	wsClientMu sync.RWMutex
	nextWSID   int64
}

func New(cfg Config) *Server {
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}

	s := &Server{
		addr:      cfg.Addr,
		store:     cfg.Store,
		settings:  cfg.Settings,
		control:   cfg.Control,
		recorder:  cfg.Recorder,
		metrics:   cfg.Metrics,
		wsClients: make(map[int64]*WSClient),
	}

	s.wsUpgrader = websocket.Upgrader{
		// Renderers are served from other origins during development.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	// Built up front so Stop may run before or concurrently with Start.
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Handler returns the full route table wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/angles", s.handleAngles)
	mux.HandleFunc("GET /api/settings/geometry", s.handleGetGeometry)
	mux.HandleFunc("PUT /api/settings/geometry", s.handlePutGeometry)

	s.registerControlEndpoints(mux)

	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return corsMiddleware(mux)
}

// Start serves until Stop is called. It returns http.ErrServerClosed after
// a clean stop, including when Stop ran first.
func (s *Server) Start() error {
	logger.Info().Str("addr", s.addr).Msg("Dashboard server starting")

	return s.httpServer.ListenAndServe()
}

// Stop closes every websocket client and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.wsClientMu.Lock()
	for _, client := range s.wsClients {
		client.Close()
	}
	s.wsClients = make(map[int64]*WSClient)
	s.wsClientMu.Unlock()
	s.recorder.SetClients(0)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	return nil
}

// Publish pushes obs and its render bundle to every connected renderer.
// It is meant to be registered with state.Store.Subscribe and may also be
// called from handlers; clients drop updates older than their last one.
func (s *Server) Publish(obs state.Observatory) {
	msg, err := json.Marshal(s.update(obs))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode update")
		return
	}

	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()

	for _, client := range s.wsClients {
		client.Send(obs.Seq, msg)
	}
}

// Update is the message pushed to renderers.
type Update struct {
	Type   string            `json:"type"`
	State  state.Observatory `json:"state"`
	Angles kinematics.Bundle `json:"angles"`
}

func (s *Server) update(obs state.Observatory) Update {
	return Update{
		Type:   "update",
		State:  obs,
		Angles: kinematics.Compute(obs, s.settings.Geometry()),
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
