// Package overlay serves the browser scoreboard page. The on-disk copy wins
// so display tweaks land without a rebuild; the embedded copy is the
// fallback when no file is present.
package overlay

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

//go:embed overlay.html
var embedded []byte

// Source resolves the overlay HTML, preferring the configured path, then
// static/<name>, then the embedded copy.
type Source struct {
	path string
	log  zerolog.Logger

	mu     sync.RWMutex
	cached []byte

	debounceMu sync.Mutex
	debounce   *time.Timer
}

// NewSource creates a source for the given overlay path and loads the
// initial content.
func NewSource(path string, log zerolog.Logger) *Source {
	s := &Source{path: path, log: log}
	s.reload()
	return s
}

// HTML returns the current overlay content.
func (s *Source) HTML() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached != nil {
		return s.cached
	}
	return embedded
}

// candidates returns the disk locations checked in order.
func (s *Source) candidates() []string {
	return []string{s.path, filepath.Join("static", filepath.Base(s.path))}
}

func (s *Source) reload() {
	for _, p := range s.candidates() {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		s.mu.Lock()
		changed := sha256.Sum256(b) != sha256.Sum256(s.cached)
		s.cached = b
		s.mu.Unlock()
		if changed {
			s.log.Info().Str("file", p).Int("bytes", len(b)).Msg("overlay content loaded")
		}
		return
	}
	s.mu.Lock()
	hadDisk := s.cached != nil
	s.cached = nil
	s.mu.Unlock()
	if hadDisk {
		s.log.Warn().Msg("overlay file removed, serving embedded copy")
	}
}

// Watch reloads the overlay when its file changes on disk. It returns when
// ctx is done. Watch failures are logged; the source keeps serving whatever
// it last loaded.
func (s *Source) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn().Err(err).Msg("overlay watcher unavailable")
		return
	}
	defer watcher.Close()

	watched := map[string]bool{}
	for _, p := range s.candidates() {
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			s.log.Debug().Err(err).Str("dir", dir).Msg("not watching overlay dir")
			continue
		}
		watched[dir] = true
	}
	if len(watched) == 0 {
		return
	}

	names := map[string]bool{}
	for _, p := range s.candidates() {
		names[filepath.Clean(p)] = true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !names[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.debounceReload(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("overlay watcher error")
		}
	}
}

func (s *Source) debounceReload(delay time.Duration) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(delay, s.reload)
}
