package overlay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedFallback(t *testing.T) {
	s := NewSource(filepath.Join(t.TempDir(), "missing.html"), zerolog.Nop())

	html := string(s.HTML())
	assert.Contains(t, html, "Scoreboard Overlay")
	assert.Contains(t, html, "/api/state")
}

func TestDiskCopyPreferred(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>custom</html>"), 0o644))

	s := NewSource(path, zerolog.Nop())
	assert.Equal(t, "<html>custom</html>", string(s.HTML()))
}

func TestStaticFallbackLocation(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.MkdirAll("static", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("static", "overlay.html"), []byte("<html>static</html>"), 0o644))

	s := NewSource("overlay.html", zerolog.Nop())
	assert.Equal(t, "<html>static</html>", string(s.HTML()))
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.html")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	s := NewSource(path, zerolog.Nop())
	require.Equal(t, "v1", string(s.HTML()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)
	time.Sleep(100 * time.Millisecond) // let the watcher attach

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if string(s.HTML()) == "v2" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("overlay not reloaded, still %q", strings.TrimSpace(string(s.HTML())))
}
