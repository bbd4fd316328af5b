package config

// loader.go - configuration loading from files and environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file (YAML or TOML)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// SkipFunc reports whether the named CLI flag was set explicitly, in
// which case lower-precedence sources must leave the field alone.
type SkipFunc func(flag string) bool

func (s SkipFunc) skip(flag string) bool { return s != nil && s(flag) }

// ── Config file ──────────────────────────────────────────────────────

// File mirrors the on-disk configuration.  Pointer fields distinguish
// "absent" from a zero value; durations are Go duration strings.
type File struct {
	Server  ServerSection  `yaml:"server" toml:"server"`
	Client  ClientSection  `yaml:"client" toml:"client"`
	Logging LoggingSection `yaml:"logging" toml:"logging"`
	Metrics MetricsSection `yaml:"metrics" toml:"metrics"`
}

type ServerSection struct {
	Host          *string `yaml:"host" toml:"host"`
	Port          *int    `yaml:"port" toml:"port"`
	MaxSessions   *int    `yaml:"max_sessions" toml:"max_sessions"`
	IdleTimeout   *string `yaml:"idle_timeout" toml:"idle_timeout"`
	GracePeriod   *string `yaml:"grace_period" toml:"grace_period"`
	MaxLineLength *int    `yaml:"max_line_length" toml:"max_line_length"`
	Transform     *string `yaml:"transform" toml:"transform"`
}

type ClientSection struct {
	Host            *string `yaml:"host" toml:"host"`
	Port            *int    `yaml:"port" toml:"port"`
	Timeout         *string `yaml:"timeout" toml:"timeout"`
	ConnectAttempts *int    `yaml:"connect_attempts" toml:"connect_attempts"`
}

type LoggingSection struct {
	Verbose    *int  `yaml:"verbose" toml:"verbose"`
	Timestamps *bool `yaml:"timestamps" toml:"timestamps"`
}

type MetricsSection struct {
	Address *string `yaml:"address" toml:"address"`
}

// LoadFile reads a config file.  The format follows the extension:
// .yaml/.yml or .toml.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("config file %s: unsupported format %q (want .yaml, .yml or .toml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &f, nil
}

// Apply overlays the file onto cfg, leaving fields whose flag was set
// explicitly untouched.  Host and port keys apply to the section that
// matches the mode: [server] in listen/demo mode, [client] otherwise.
func (f *File) Apply(cfg *Config, skip SkipFunc) error {
	s := f.Server
	if cfg.Listen || cfg.Demo {
		if s.Host != nil && cfg.Listen {
			cfg.Host = *s.Host
		}
		if s.Port != nil && !skip.skip("port") {
			cfg.LocalPort = *s.Port
		}
	}
	if s.MaxSessions != nil && !skip.skip("max-sessions") {
		cfg.MaxSessions = *s.MaxSessions
	}
	if err := applyDuration(&cfg.IdleWorkerTimeout, s.IdleTimeout, "server.idle_timeout", skip.skip("idle-timeout")); err != nil {
		return err
	}
	if err := applyDuration(&cfg.GracePeriod, s.GracePeriod, "server.grace_period", skip.skip("grace")); err != nil {
		return err
	}
	if s.MaxLineLength != nil && !skip.skip("max-line") {
		cfg.MaxLineLength = *s.MaxLineLength
	}
	if s.Transform != nil && !skip.skip("transform") {
		cfg.Transform = *s.Transform
	}

	c := f.Client
	if !cfg.Listen && !cfg.Demo {
		if c.Host != nil {
			cfg.Host = *c.Host
		}
		if c.Port != nil {
			cfg.Port = *c.Port
		}
	}
	if err := applyDuration(&cfg.Timeout, c.Timeout, "client.timeout", skip.skip("timeout")); err != nil {
		return err
	}
	if c.ConnectAttempts != nil && !skip.skip("retries") {
		cfg.ConnectAttempts = *c.ConnectAttempts
	}

	if f.Logging.Verbose != nil && !skip.skip("verbose") {
		cfg.Verbose = *f.Logging.Verbose
	}
	if f.Logging.Timestamps != nil && !skip.skip("timestamps") {
		cfg.Timestamps = *f.Logging.Timestamps
	}
	if f.Metrics.Address != nil && !skip.skip("metrics-addr") {
		cfg.MetricsAddr = *f.Metrics.Address
	}
	return nil
}

func applyDuration(dst *time.Duration, src *string, key string, skip bool) error {
	if src == nil || skip {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("config file: %s: %w", key, err)
	}
	*dst = d
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GECHO_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Unparseable values
// are ignored.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value, and never a field whose flag
// was set explicitly.
func LoadFromEnv(cfg *Config, skip SkipFunc) {
	if v := os.Getenv("GECHO_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("GECHO_PORT"); v > 0 && !skip.skip("port") {
		cfg.LocalPort = v
	}
	if envBool("GECHO_LISTEN") && !skip.skip("listen") {
		cfg.Listen = true
	}

	// Server
	if v := envInt("GECHO_MAX_SESSIONS"); v > 0 && !skip.skip("max-sessions") {
		cfg.MaxSessions = v
	}
	if v := envDuration("GECHO_GRACE"); v > 0 && !skip.skip("grace") {
		cfg.GracePeriod = v
	}
	if v := envDuration("GECHO_IDLE_TIMEOUT"); v > 0 && !skip.skip("idle-timeout") {
		cfg.IdleWorkerTimeout = v
	}
	if v := envInt("GECHO_MAX_LINE"); v > 0 && !skip.skip("max-line") {
		cfg.MaxLineLength = v
	}
	if v := os.Getenv("GECHO_TRANSFORM"); v != "" && !skip.skip("transform") {
		cfg.Transform = v
	}

	// Client
	if v := envInt("GECHO_TIMEOUT"); v > 0 && !skip.skip("timeout") {
		cfg.Timeout = secondsDuration(v)
	}
	if v := envInt("GECHO_RETRIES"); v > 0 && !skip.skip("retries") {
		cfg.ConnectAttempts = v
	}

	// Output
	if v := envInt("GECHO_VERBOSE"); v > 0 && !skip.skip("verbose") {
		cfg.Verbose = v
	}
	if envBool("GECHO_TIMESTAMPS") && !skip.skip("timestamps") {
		cfg.Timestamps = true
	}
	if v := os.Getenv("GECHO_METRICS_ADDR"); v != "" && !skip.skip("metrics-addr") {
		cfg.MetricsAddr = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
