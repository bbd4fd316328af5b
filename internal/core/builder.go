package core

import (
	"fmt"

	"gecho/config"
	"gecho/internal/client"
	"gecho/internal/metrics"
	"gecho/internal/server"
	"gecho/util"
)

// demoConnectAttempts lets the demo client ride out server startup.
const demoConnectAttempts = 5

// Build constructs the Mode selected by cfg.  cfg must already be
// validated; construction errors from the server or client are
// returned as-is.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	switch {
	case cfg.Demo:
		return buildDemo(cfg, logger)
	case cfg.Listen:
		return buildServe(cfg, logger)
	default:
		return buildConnect(cfg, logger)
	}
}

// Describe summarises what Build would run, for --dry-run.
func Describe(cfg *config.Config) string {
	switch {
	case cfg.Demo:
		sc := cfg.Server()
		return fmt.Sprintf("demo: serve %q on port %d and connect one client", sc.Transform, sc.Port)
	case cfg.Listen:
		sc := cfg.Server()
		return fmt.Sprintf("serve %q on %s (max sessions %d, grace %s)",
			sc.Transform, util.FormatAddr(sc.Host, sc.Port), sc.MaxSessions, sc.GracePeriod)
	default:
		cc := cfg.Client()
		return fmt.Sprintf("connect to %s (timeout %s, attempts %d)",
			util.FormatAddr(cc.Host, cc.Port), cc.Timeout, cc.ConnectAttempts)
	}
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger) (Mode, error) {
	m := metrics.New()
	srv, err := server.New(cfg.Server(), logger, m)
	if err != nil {
		return nil, err
	}
	return &ServeMode{
		Server:      srv,
		Metrics:     m,
		MetricsAddr: cfg.MetricsAddr,
		Logger:      logger,
	}, nil
}

func buildConnect(cfg *config.Config, logger *util.Logger) (Mode, error) {
	c, err := client.New(cfg.Client(), logger)
	if err != nil {
		return nil, err
	}
	return &ConnectMode{Client: c}, nil
}

func buildDemo(cfg *config.Config, logger *util.Logger) (Mode, error) {
	srv, err := server.New(cfg.Server(), logger, metrics.New())
	if err != nil {
		return nil, err
	}

	cc := cfg.Client()
	if cc.ConnectAttempts < demoConnectAttempts {
		cc.ConnectAttempts = demoConnectAttempts
	}
	c, err := client.New(cc, logger)
	if err != nil {
		return nil, err
	}
	return &DemoMode{Server: srv, Client: c, Logger: logger}, nil
}
