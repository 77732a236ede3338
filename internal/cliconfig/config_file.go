package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	IngestAddr  string `toml:"ingest_addr"`
	HTTPAddr    string `toml:"http_addr"`
	DataLogDir  string `toml:"data_log_dir"`
	DevMode     *bool  `toml:"dev_mode"`
	OverlayPath string `toml:"overlay_path"`
	MaxConns    int    `toml:"max_conns"`
	ReadTimeout string `toml:"read_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.scorebridge/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".scorebridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("ingest-addr", fc.IngestAddr, &cfg.IngestAddr)
	s.setString("http-addr", fc.HTTPAddr, &cfg.HTTPAddr)
	s.setString("data-log-dir", fc.DataLogDir, &cfg.DataLogDir)
	s.setString("overlay", fc.OverlayPath, &cfg.OverlayPath)

	s.setBool("dev", fc.DevMode, &cfg.DevMode)
	s.setInt("max-conns", fc.MaxConns, &cfg.MaxConns)

	return s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
