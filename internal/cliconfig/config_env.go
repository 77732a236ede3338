package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (SCOREBRIDGE_*). It respects flags that have been explicitly set
// (changed map). Returns error if any environment variable has an
// invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("ingest-addr", os.Getenv("SCOREBRIDGE_INGEST_ADDR"), &cfg.IngestAddr)
	s.setString("http-addr", os.Getenv("SCOREBRIDGE_HTTP_ADDR"), &cfg.HTTPAddr)
	s.setString("data-log-dir", os.Getenv("SCOREBRIDGE_DATA_LOG_DIR"), &cfg.DataLogDir)
	s.setString("overlay", os.Getenv("SCOREBRIDGE_OVERLAY_PATH"), &cfg.OverlayPath)

	s.setBoolFromString("dev", os.Getenv("SCOREBRIDGE_DEV_MODE"), &cfg.DevMode)

	if err := s.setIntFromString("max-conns", os.Getenv("SCOREBRIDGE_MAX_CONNS"), &cfg.MaxConns); err != nil {
		return err
	}
	return s.setDuration("read-timeout", os.Getenv("SCOREBRIDGE_READ_TIMEOUT"), &cfg.ReadTimeout)
}
