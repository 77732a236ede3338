// Package recorder captures raw per-connection ingest bytes to disk for
// later replay. Everything here is best effort: a recorder failure is logged
// by the caller and never disturbs decoding or the connection.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
)

// DefaultDir is where session capture files are created.
const DefaultDir = "data_log"

// Factory creates one session file per ingest connection.
type Factory struct {
	dir   string
	clock clockwork.Clock
}

// NewFactory returns a factory writing under dir (DefaultDir when empty).
func NewFactory(dir string, clock clockwork.Clock) *Factory {
	if dir == "" {
		dir = DefaultDir
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Factory{dir: dir, clock: clock}
}

// Session is an append-only capture file for one connection.
type Session struct {
	f    *os.File
	path string
}

// Open creates the capture directory and a session file named by the
// connection-start timestamp (seconds plus milliseconds).
func (fa *Factory) Open() (*Session, error) {
	if err := os.MkdirAll(fa.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	now := fa.clock.Now()
	name := fmt.Sprintf("session-%d.%03d.log", now.Unix(), now.Nanosecond()/1e6)
	path := filepath.Join(fa.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session file %s: %w", path, err)
	}
	return &Session{f: f, path: path}, nil
}

// Path returns the session file location.
func (s *Session) Path() string { return s.path }

// Write appends one read chunk as a single bracketed hex line, e.g.
// "[01, 7F, 02, 47]". The format matches what the replay tooling parses.
func (s *Session) Write(chunk []byte) error {
	if _, err := s.f.WriteString(hexLine(chunk)); err != nil {
		return fmt.Errorf("write session line: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("flush session file: %w", err)
	}
	return nil
}

// Close releases the session file.
func (s *Session) Close() error { return s.f.Close() }

func hexLine(chunk []byte) string {
	var b strings.Builder
	b.Grow(2 + len(chunk)*4)
	b.WriteByte('[')
	for i, c := range chunk {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	b.WriteString("]\n")
	return b.String()
}
