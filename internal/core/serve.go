package core

import (
	"context"

	"gecho/internal/metrics"
	"gecho/internal/server"
	"gecho/util"
)

// ServeMode runs the echo server until ctx is cancelled, then shuts it
// down gracefully.
type ServeMode struct {
	Server      *server.Server
	Metrics     *metrics.Collector
	MetricsAddr string // empty disables the /metrics endpoint
	Logger      *util.Logger
}

// Run starts the server and blocks until ctx is done or the server
// fails to bind.
func (m *ServeMode) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- m.Server.Start() }()

	if m.MetricsAddr != "" {
		go m.serveMetrics(ctx)
	}

	select {
	case err := <-errCh:
		m.Server.Stop()
		return err
	case <-ctx.Done():
	}

	m.Logger.Verbose("received shutdown signal")
	m.Server.Stop()
	err := <-errCh
	m.Logger.Verbose("final metrics: %s", m.Metrics.JSON())
	return err
}

func (m *ServeMode) serveMetrics(ctx context.Context) {
	m.Logger.Info("metrics on http://%s/metrics", m.MetricsAddr)
	if err := metrics.Serve(ctx, m.MetricsAddr, m.Metrics); err != nil {
		m.Logger.Warn("metrics endpoint: %v", err)
	}
}
