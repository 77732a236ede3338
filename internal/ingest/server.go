// Package ingest accepts scoreboard console connections and drives the
// decode pipeline: socket bytes -> frame -> event -> state store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arena-labs/scorebridge/internal/protocol"
	"github.com/arena-labs/scorebridge/internal/recorder"
	"github.com/arena-labs/scorebridge/internal/state"
)

// readBufferSize bounds one socket read; the console emits one frame per
// write, well under this.
const readBufferSize = 1024

// Config controls one ingest listener.
type Config struct {
	Addr        string
	ReadTimeout time.Duration
	// MaxConns caps concurrently handled connections; connections over the
	// cap are closed at accept time.
	MaxConns int
}

// Server owns the ingest TCP listener and its per-connection handlers.
type Server struct {
	cfg   Config
	store *state.Store
	// rec is nil in dev mode; capture is then disabled entirely.
	rec *recorder.Factory
	log zerolog.Logger

	gate chan struct{}

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer builds an ingest server. rec may be nil to disable session capture.
func NewServer(cfg Config, store *state.Store, rec *recorder.Factory, log zerolog.Logger) *Server {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 64
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 300 * time.Second
	}
	return &Server{
		cfg:   cfg,
		store: store,
		rec:   rec,
		log:   log,
		gate:  make(chan struct{}, cfg.MaxConns),
		conns: make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and launches the accept loop. It returns once
// the listener is bound; handlers run until Stop or ctx cancellation.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("ingest listen %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("ingest server listening")

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)

	go func() {
		<-ctx.Done()
		s.closeAll()
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

// Stop closes the listener and every open connection, then waits for the
// in-flight handlers to finish. Closed connections unblock handlers parked
// in Read, so Stop returns without waiting out the read deadline.
func (s *Server) Stop() {
	s.closeAll()
	s.wg.Wait()
}

// closeAll shuts the listener and all tracked connections and marks the
// server closed so late accepts are refused.
func (s *Server) closeAll() {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
}

// track registers an accepted connection; it reports false when the server
// is already shutting down and the connection should be dropped.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	back := newAcceptBackoff()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("accept failed")
			back.Sleep()
			continue
		}
		back.Reset()

		select {
		case s.gate <- struct{}{}:
		default:
			s.log.Warn().
				Str("peer", conn.RemoteAddr().String()).
				Int("max_conns", s.cfg.MaxConns).
				Msg("connection limit reached, refusing connection")
			_ = conn.Close()
			continue
		}

		if !s.track(conn) {
			<-s.gate
			_ = conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.gate }()
			defer s.untrack(conn)
			s.handle(conn)
		}()
	}
}

// handle runs one connection to completion. Decode failures never tear the
// connection down; only a closed peer or a socket error ends the loop.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr().String()
	log := s.log.With().Str("peer", peer).Str("session", uuid.NewString()).Logger()
	log.Info().Msg("console connected")

	var sess *recorder.Session
	if s.rec != nil {
		var err error
		if sess, err = s.rec.Open(); err != nil {
			log.Warn().Err(err).Msg("session capture disabled for this connection")
			sess = nil
		} else {
			log.Info().Str("file", sess.Path()).Msg("capturing session bytes")
			defer sess.Close()
		}
	}

	buf := make([]byte, readBufferSize)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			log.Error().Err(err).Msg("set read deadline failed")
			return
		}
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Msg("console disconnected")
			} else if errors.Is(err, net.ErrClosed) {
				log.Info().Msg("connection closed during shutdown")
			} else {
				log.Error().Err(err).Msg("read failed")
			}
			return
		}
		if n == 0 {
			log.Info().Msg("console disconnected")
			return
		}

		chunk := buf[:n]
		if sess != nil {
			if werr := sess.Write(chunk); werr != nil {
				log.Warn().Err(werr).Msg("session capture write failed")
			}
		}

		s.processChunk(chunk, log)
	}
}

// processChunk decodes exactly one frame from one read. The console emits
// one frame per write; chunks holding frame fragments fail validation and
// are dropped.
func (s *Server) processChunk(chunk []byte, log zerolog.Logger) {
	frame, err := protocol.DecodeFrame(chunk)
	if err != nil {
		log.Warn().Err(err).Int("len", len(chunk)).Msg("dropping invalid frame")
		return
	}

	ev, err := protocol.DecodeMessage(frame.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("dropping undecodable message")
		return
	}
	if u, ok := ev.(protocol.Unknown); ok {
		log.Warn().
			Str("tag", fmt.Sprintf("%02X%02X", u.TagBytes[0], u.TagBytes[1])).
			Msg("unknown message type")
		return
	}

	s.store.Apply(ev)
	log.Debug().Str("event", fmt.Sprintf("%T", ev)).Msg("applied event")
}
