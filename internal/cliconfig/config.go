package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// Defaults for the two listeners.
const (
	DefaultIngestAddr = "0.0.0.0:4001"
	DefaultHTTPAddr   = "0.0.0.0:8080"
)

// Config holds CLI configuration for scorebridge.
type Config struct {
	IngestAddr string
	HTTPAddr   string

	DataLogDir string
	DevMode    bool

	OverlayPath string

	MaxConns    int
	ReadTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		IngestAddr:  DefaultIngestAddr,
		HTTPAddr:    DefaultHTTPAddr,
		DataLogDir:  "data_log",
		OverlayPath: "overlay.html",
		MaxConns:    64,
		ReadTimeout: 300 * time.Second,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.IngestAddr == "" {
		return fmt.Errorf("ingest-addr is required")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http-addr is required")
	}
	if c.DataLogDir == "" {
		c.DataLogDir = "data_log"
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max-conns must be positive")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read-timeout must be positive")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
