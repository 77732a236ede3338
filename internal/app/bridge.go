// Package app assembles the scoreboard bridge: the shared state store, the
// ingest listener, the query surface and the overlay content source.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/arena-labs/scorebridge/internal/cliconfig"
	"github.com/arena-labs/scorebridge/internal/ingest"
	"github.com/arena-labs/scorebridge/internal/overlay"
	"github.com/arena-labs/scorebridge/internal/queryserver"
	"github.com/arena-labs/scorebridge/internal/recorder"
	"github.com/arena-labs/scorebridge/internal/state"
)

// State represents the lifecycle state of the bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Stopped"
	}
}

// Bridge owns every component and manages their shared lifetime.
type Bridge struct {
	cfg   cliconfig.Config
	log   zerolog.Logger
	store *state.Store

	ingest  *ingest.Server
	query   *queryserver.Server
	hub     *queryserver.Hub
	overlay *overlay.Source

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// New builds a bridge from validated configuration.
func New(cfg cliconfig.Config, log zerolog.Logger) *Bridge {
	store := state.NewStore()
	hub := queryserver.NewHub(log)
	src := overlay.NewSource(cfg.OverlayPath, log)

	// Dev mode runs without per-connection byte capture.
	var rec *recorder.Factory
	if !cfg.DevMode {
		rec = recorder.NewFactory(cfg.DataLogDir, clockwork.NewRealClock())
	}

	b := &Bridge{
		cfg:     cfg,
		log:     log,
		store:   store,
		hub:     hub,
		overlay: src,
		ingest: ingest.NewServer(ingest.Config{
			Addr:        cfg.IngestAddr,
			ReadTimeout: cfg.ReadTimeout,
			MaxConns:    cfg.MaxConns,
		}, store, rec, log),
		query: queryserver.NewServer(cfg.HTTPAddr, store, src, hub, log),
	}

	store.Subscribe(func(snap state.Snapshot) {
		if payload, err := json.Marshal(snap); err == nil {
			hub.Broadcast(payload)
		}
	})
	return b
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Store exposes the shared aggregate, mainly for tests.
func (b *Bridge) Store() *state.Store { return b.store }

// IngestAddr returns the bound ingest address once running.
func (b *Bridge) IngestAddr() string { return b.ingest.Addr() }

// QueryAddr returns the bound query address once running.
func (b *Bridge) QueryAddr() string { return b.query.Addr() }

// Start brings both listeners up. It fails fast if either bind fails and
// leaves nothing half-running.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateStopped {
		b.mu.Unlock()
		return fmt.Errorf("bridge is %s, cannot start", b.state)
	}
	b.state = StateStarting
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	if err := b.ingest.Start(runCtx); err != nil {
		b.setState(StateStopped)
		cancel()
		return err
	}
	if err := b.query.Start(runCtx); err != nil {
		b.ingest.Stop()
		b.setState(StateStopped)
		cancel()
		return err
	}

	go b.overlay.Watch(runCtx)

	b.setState(StateRunning)
	b.log.Info().
		Str("ingest", b.ingest.Addr()).
		Str("http", b.query.Addr()).
		Bool("dev_mode", b.cfg.DevMode).
		Msg("scorebridge running")
	return nil
}

// Stop shuts down both listeners and waits for handlers to drain.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.state != StateRunning && b.state != StateStarting {
		b.mu.Unlock()
		return
	}
	b.state = StateStopping
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.ingest.Stop()
	b.query.Stop()
	b.setState(StateStopped)
	b.log.Info().Msg("scorebridge stopped")
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	prev := b.state
	b.state = s
	b.mu.Unlock()
	if prev != s {
		b.log.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("state transition")
	}
}
