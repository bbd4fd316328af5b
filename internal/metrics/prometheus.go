package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gecho"

// Register exposes the collector's counters on reg.  The Prometheus
// metrics read the same atomics, so there is no second bookkeeping path.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	counter := func(name, help string, v func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help,
		}, func() float64 { return float64(v()) })
	}
	gauge := func(name, help string, v func() int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help,
		}, func() float64 { return float64(v()) })
	}

	collectors := []prometheus.Collector{
		gauge("connections_active", "Current number of open sessions", c.ActiveConnections),
		counter("connections_total", "Total number of accepted connections", c.TotalConnections),
		counter("messages_total", "Total number of answered request lines", c.Messages),
		counter("terminations_total", "Total number of termination commands received", c.Terminations),
		counter("received_bytes_total", "Total bytes read from clients", c.TotalBytesIn),
		counter("sent_bytes_total", "Total bytes written to clients", c.TotalBytesOut),
		counter("sessions_forced_total", "Sessions force-closed after the shutdown grace period", c.ForcedSessions),
		counter("errors_total", "Total number of I/O errors", c.ErrorCount),
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Serve exposes c at http://addr/metrics until ctx is cancelled.  It
// returns nil after a clean shutdown.
func Serve(ctx context.Context, addr string, c *Collector) error {
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
