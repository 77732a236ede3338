package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arena-labs/scorebridge/internal/cliconfig"
	"github.com/arena-labs/scorebridge/internal/protocol"
)

func testConfig(t *testing.T) cliconfig.Config {
	t.Helper()
	cfg := cliconfig.DefaultConfig()
	cfg.IngestAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.DevMode = true
	cfg.OverlayPath = filepath.Join(t.TempDir(), "overlay.html")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBridgeLifecycle(t *testing.T) {
	b := New(testConfig(t), zerolog.Nop())
	assert.Equal(t, StateStopped, b.State())

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, StateRunning, b.State())

	// Double start is rejected.
	assert.Error(t, b.Start(context.Background()))

	b.Stop()
	assert.Equal(t, StateStopped, b.State())

	// Stop is idempotent.
	b.Stop()
	assert.Equal(t, StateStopped, b.State())
}

// End to end: bytes in on the ingest socket, JSON out on the query API.
func TestBridgeEndToEnd(t *testing.T) {
	b := New(testConfig(t), zerolog.Nop())
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	conn, err := net.Dial("tcp", b.IngestAddr())
	require.NoError(t, err)
	defer conn.Close()

	frame := protocol.EncodeFrame(0x7F, 0x47, []byte("305120095"))
	_, err = conn.Write(frame)
	require.NoError(t, err)

	url := fmt.Sprintf("http://%s/api/state", b.QueryAddr())
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "score never reached the query API")

		resp, err := http.Get(url)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		var got struct {
			HomeScore int    `json:"home_score"`
			AwayScore int    `json:"away_score"`
			Error     string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(body, &got))
		if got.Error == "" && got.HomeScore == 120 && got.AwayScore == 95 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}
