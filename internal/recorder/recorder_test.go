package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFileName(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 3, 14, 9, 26, 53, 589*int(time.Millisecond), time.UTC)
	clock := clockwork.NewFakeClockAt(at)

	fa := NewFactory(dir, clock)
	s, err := fa.Open()
	require.NoError(t, err)
	defer s.Close()

	want := filepath.Join(dir, "session-1741944413.589.log")
	assert.Equal(t, want, s.Path())
}

func TestWriteHexLines(t *testing.T) {
	dir := t.TempDir()
	fa := NewFactory(dir, clockwork.NewFakeClock())

	s, err := fa.Open()
	require.NoError(t, err)

	require.NoError(t, s.Write([]byte{0x01, 0x7F, 0x02, 0x47}))
	require.NoError(t, s.Write([]byte{0xFF}))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[01, 7F, 02, 47]\n[FF]\n", string(b))
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "capture")
	fa := NewFactory(dir, clockwork.NewFakeClock())

	s, err := fa.Open()
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenFailsOnUnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	fa := NewFactory(filepath.Join(dir, "capture"), clockwork.NewFakeClock())
	_, err := fa.Open()
	assert.Error(t, err)
}
