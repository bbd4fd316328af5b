// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"gecho/config"
	"gecho/internal/capability"
	"gecho/internal/core"
	"gecho/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gecho/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the selected gecho mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Default()
	fs := flag.NewFlagSet("gecho", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── mode ─────────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", false, "Serve echo sessions")
	fs.IntVarP(&cfg.LocalPort, "port", "p", 0, "Listen port")
	fs.BoolVar(&cfg.Demo, "demo", false, fmt.Sprintf("Run a server and one client session (port %d unless -p)", config.DemoPort))
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate configuration and print what would run")

	// ── server ───────────────────────────────────────────────────
	fs.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "Concurrent session cap (0 = unbounded)")
	fs.DurationVar(&cfg.GracePeriod, "grace", cfg.GracePeriod, "Shutdown grace period")
	fs.DurationVar(&cfg.IdleWorkerTimeout, "idle-timeout", cfg.IdleWorkerTimeout, "Idle worker lifetime")
	fs.IntVar(&cfg.MaxLineLength, "max-line", cfg.MaxLineLength, "Maximum request line length in bytes")
	fs.StringVar(&cfg.Transform, "transform", cfg.Transform,
		fmt.Sprintf("Response transform (%s)", strings.Join(capability.Names(), "|")))

	// ── client ───────────────────────────────────────────────────
	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", int(cfg.Timeout/time.Second), "Connect timeout in seconds")
	fs.IntVar(&cfg.ConnectAttempts, "retries", cfg.ConnectAttempts, "Connect attempts before giving up")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Only print errors")
	fs.BoolVar(&cfg.Timestamps, "timestamps", false, "Prefix log lines with timestamps")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on host:port (listen mode)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "YAML or TOML config file")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(stderr, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "gecho %s\n", version)
		return nil
	}

	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}

	// ── lower-precedence sources ─────────────────────────────────
	skip := config.SkipFunc(fs.Changed)
	if cfg.ConfigFile != "" {
		f, err := config.LoadFile(cfg.ConfigFile)
		if err != nil {
			return err
		}
		if err := f.Apply(cfg, skip); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg, skip)

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprintf(stdout, "dry run: %s\n", core.Describe(cfg))
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbosity())
	logger.SetOutput(stderr)
	if cfg.Timestamps {
		logger.SetTimestamps(true)
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	switch {
	case cfg.Demo:
		if len(remaining) > 0 {
			return fmt.Errorf("--demo takes no arguments")
		}
		return nil

	case cfg.Listen:
		switch len(remaining) {
		case 0: // gecho -l -p PORT
		case 1:
			cfg.Host = remaining[0]
		default:
			return fmt.Errorf("too many arguments for listen mode")
		}
		return nil
	}

	// Client: host port.  Either may come from the config file or
	// environment instead.
	switch len(remaining) {
	case 0:
	case 1:
		cfg.Host = remaining[0]
	case 2:
		cfg.Host = remaining[0]
		port, err := strconv.Atoi(remaining[1])
		if err != nil {
			return fmt.Errorf("port %q: not a number", remaining[1])
		}
		cfg.Port = port
	default:
		return fmt.Errorf("too many arguments (want HOST PORT)")
	}

	if cfg.Host == "" {
		return fmt.Errorf("hostname required (use --help for usage)")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port required")
	}
	return nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `gecho – concurrent line echo server and client v%s

Usage:
  gecho -l -p <port> [bind-host] [options]    Serve until interrupted
  gecho [options] <host> <port>               Interactive client
  gecho --demo [-p <port>]                    Server plus one client session

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  gecho -l -p 9000                            Serve on all interfaces
  gecho -l -p 9000 --transform upper -v       Upper-case echo, verbose log
  gecho localhost 9000                        Talk to a server
  printf 'hi\nbye\n' | gecho localhost 9000   Scripted session
  gecho -l -p 9000 --metrics-addr :9100       Expose Prometheus metrics

Send "bye" to end a session.  Environment variables GECHO_* and
--config files (YAML or TOML) supply defaults; flags win.
`)
}
