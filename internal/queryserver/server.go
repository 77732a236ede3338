// Package queryserver exposes the live game snapshot to the browser overlay:
// JSON over /api/state, push updates over /ws, and the overlay page itself
// on every other path.
package queryserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/arena-labs/scorebridge/internal/overlay"
	"github.com/arena-labs/scorebridge/internal/state"
)

// noDataError is the /api/state body before any event has been applied.
type noDataError struct {
	Error string `json:"error"`
}

// Server is the HTTP listener feeding the overlay.
type Server struct {
	addr    string
	store   *state.Store
	overlay *overlay.Source
	hub     *Hub
	log     zerolog.Logger

	mu sync.Mutex
	ln net.Listener
	hs *http.Server
}

// NewServer wires the query surface. hub may be nil to disable websocket push.
func NewServer(addr string, store *state.Store, src *overlay.Source, hub *Hub, log zerolog.Logger) *Server {
	return &Server{addr: addr, store: store, overlay: src, hub: hub, log: log}
}

// Router builds the HTTP handler: the state API, the websocket endpoint and
// the overlay catch-all, wrapped in a permissive CORS layer so the overlay
// can be hosted anywhere.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/state", s.handleState)
	if s.hub != nil {
		r.Get("/ws", s.hub.Handler(s.snapshotJSON))
	}
	r.NotFound(s.handleOverlay)
	return cors.AllowAll().Handler(r)
}

// Start binds the listener and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("query listen %s: %w", s.addr, err)
	}

	hs := &http.Server{Handler: s.Router()}
	s.mu.Lock()
	s.ln, s.hs = ln, hs
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("query server listening")

	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("query server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop shuts the HTTP server down, closing websocket clients first.
func (s *Server) Stop() {
	if s.hub != nil {
		s.hub.Close()
	}
	s.mu.Lock()
	hs := s.hs
	s.mu.Unlock()
	if hs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(ctx)
}

// snapshotJSON renders the current snapshot for the websocket greeting, or
// nil when no data has arrived yet.
func (s *Server) snapshotJSON() []byte {
	snap := s.store.Snapshot()
	if !snap.HasData {
		return nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	return b
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	// Copy the state under lock, serialize after.
	snap := s.store.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if !snap.HasData {
		_ = json.NewEncoder(w).Encode(noDataError{Error: "No game data available"})
		return
	}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.Warn().Err(err).Str("peer", r.RemoteAddr).Msg("write state response failed")
	}
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(s.overlay.HTML()); err != nil {
		s.log.Warn().Err(err).Str("peer", r.RemoteAddr).Msg("write overlay response failed")
	}
}
