// Package config defines the runtime configuration for gecho: the
// CLI-level Config plus the immutable ServerConfig and ClientConfig
// values derived from it.
package config

import (
	"fmt"
	"strings"
	"time"

	"gecho/internal/errors"
)

// Config holds every tuneable for a single gecho invocation.
type Config struct {
	// ── Mode ─────────────────────────────────────────────────────────
	Listen bool
	Demo   bool
	DryRun bool

	// ── Connection ───────────────────────────────────────────────────
	Host      string // client target host, or bind host in listen mode
	Port      int    // client target port
	LocalPort int    // -p: listen port

	// ── Server ───────────────────────────────────────────────────────
	MaxSessions       int
	IdleWorkerTimeout time.Duration
	GracePeriod       time.Duration
	MaxLineLength     int
	Transform         string

	// ── Client ───────────────────────────────────────────────────────
	Timeout         time.Duration
	ConnectAttempts int

	// ── Output ───────────────────────────────────────────────────────
	Verbose     int
	Quiet       bool
	Timestamps  bool
	MetricsAddr string

	ConfigFile string
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		MaxSessions:       DefaultMaxSessions,
		IdleWorkerTimeout: DefaultIdleWorkerTimeout,
		GracePeriod:       DefaultGracePeriod,
		MaxLineLength:     DefaultMaxLineLength,
		Transform:         DefaultTransform,
		Timeout:           DefaultConnTimeout,
		ConnectAttempts:   DefaultConnectAttempts,
	}
}

// Verbosity folds -v and -q into a single logger level.
func (c *Config) Verbosity() int {
	if c.Quiet {
		return 0
	}
	return DefaultVerbosity + c.Verbose
}

// Server derives the listener configuration.  The demo mode serves on
// DemoPort unless -p was given.
func (c *Config) Server() ServerConfig {
	port := c.LocalPort
	if c.Demo && port == 0 {
		port = DemoPort
	}
	host := ""
	if c.Listen {
		host = c.Host
	}
	return ServerConfig{
		Host:              host,
		Port:              port,
		MaxSessions:       c.MaxSessions,
		IdleWorkerTimeout: c.IdleWorkerTimeout,
		GracePeriod:       c.GracePeriod,
		MaxLineLength:     c.MaxLineLength,
		Transform:         c.Transform,
	}
}

// Client derives the interactive client configuration.  In demo mode
// it targets the local demo server.
func (c *Config) Client() ClientConfig {
	cc := ClientConfig{
		Host:            c.Host,
		Port:            c.Port,
		Timeout:         c.Timeout,
		ConnectAttempts: c.ConnectAttempts,
		MaxLineLength:   c.MaxLineLength,
	}
	if c.Demo {
		cc.Host = DefaultClientHost
		cc.Port = c.Server().Port
	}
	return cc
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Listen && c.Demo {
		return fmt.Errorf("--listen and --demo are mutually exclusive")
	}

	switch {
	case c.Listen:
		if c.LocalPort == 0 {
			return &errors.ConfigError{
				Field:   "port",
				Message: "listen mode requires a port",
				Hint:    fmt.Sprintf("use -p <port> with a port in %d-%d", MinServerPort, MaxServerPort),
			}
		}
		if err := c.Server().Validate(); err != nil {
			return err
		}
	case c.Demo:
		if err := c.Server().Validate(); err != nil {
			return err
		}
	default:
		if err := c.Client().Validate(); err != nil {
			return err
		}
	}

	if c.Verbose < 0 {
		return errors.Invalid("verbose", c.Verbose, "must not be negative")
	}
	return nil
}

// ── Server ───────────────────────────────────────────────────────────

// ServerConfig is the immutable configuration of one echo server.
type ServerConfig struct {
	Host              string // bind host; empty binds all interfaces
	Port              int
	MaxSessions       int // 0 means unbounded
	IdleWorkerTimeout time.Duration
	GracePeriod       time.Duration
	MaxLineLength     int
	Transform         string
}

// Validate checks port range and limits.
func (s ServerConfig) Validate() error {
	if s.Port < MinServerPort || s.Port > MaxServerPort {
		return &errors.ConfigError{
			Field:   "port",
			Value:   s.Port,
			Message: fmt.Sprintf("out of range %d-%d", MinServerPort, MaxServerPort),
			Hint:    "system ports and the ephemeral range are not served",
		}
	}
	if s.MaxSessions < 0 {
		return errors.Invalid("max-sessions", s.MaxSessions, "must not be negative")
	}
	if s.GracePeriod <= 0 {
		return errors.Invalid("grace", s.GracePeriod, "must be positive")
	}
	if s.IdleWorkerTimeout <= 0 {
		return errors.Invalid("idle-timeout", s.IdleWorkerTimeout, "must be positive")
	}
	if s.MaxLineLength <= 0 {
		return errors.Invalid("max-line", s.MaxLineLength, "must be positive")
	}
	if strings.TrimSpace(s.Transform) == "" {
		return errors.Invalid("transform", nil, "must not be blank")
	}
	return nil
}

// ── Client ───────────────────────────────────────────────────────────

// ClientConfig is the immutable configuration of the interactive client.
type ClientConfig struct {
	Host            string
	Port            int
	Timeout         time.Duration // 0 means no dial timeout
	ConnectAttempts int           // ≤ 1 dials once
	MaxLineLength   int           // longest request line; 0 means DefaultMaxLineLength
}

// Validate checks the target host and port.  It performs no network
// activity.
func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return &errors.ConfigError{
			Field:   "host",
			Message: "must not be blank",
			Hint:    "pass an IP literal or a resolvable hostname",
		}
	}
	if c.Port < MinClientPort || c.Port > MaxClientPort {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: fmt.Sprintf("out of range %d-%d", MinClientPort, MaxClientPort),
		}
	}
	if c.Timeout < 0 {
		return errors.Invalid("timeout", c.Timeout, "must not be negative")
	}
	if c.MaxLineLength < 0 {
		return errors.Invalid("max-line", c.MaxLineLength, "must not be negative")
	}
	return nil
}
