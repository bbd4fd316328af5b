// Package server implements the listening side of gecho: it binds a
// TCP port, accepts connections and hands each one to a session
// running on the dispatch pool.  Stop coordinates a graceful shutdown
// that escalates to a forced one after the grace period.
package server

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gecho/config"
	"gecho/internal/capability"
	"gecho/internal/dispatch"
	"gecho/internal/errors"
	"gecho/internal/metrics"
	"gecho/internal/retry"
	"gecho/internal/session"
	"gecho/internal/transport"
	"gecho/util"
)

// State is the lifecycle stage of a Server.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Server is a concurrent line echo server.  A Server runs at most one
// Start/Stop cycle.
type Server struct {
	cfg     config.ServerConfig
	resp    capability.Capability
	logger  *util.Logger
	metrics *metrics.Collector
	pool    *dispatch.Pool

	running atomic.Bool
	state   atomic.Int32

	mu            sync.Mutex
	ln            net.Listener
	used          bool // Start has been called
	stopRequested bool

	ready      chan struct{}
	acceptDone chan struct{}
	quit       chan struct{}
	stopOnce   sync.Once
}

// New validates cfg and returns a stopped server.  No socket is opened
// until Start.
func New(cfg config.ServerConfig, logger *util.Logger, m *metrics.Collector) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := capability.ByName(cfg.Transform)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}

	s := &Server{
		cfg:        cfg,
		resp:       c,
		logger:     logger,
		metrics:    m,
		ready:      make(chan struct{}),
		acceptDone: make(chan struct{}),
		quit:       make(chan struct{}),
	}
	s.pool = dispatch.New(dispatch.Options{
		MaxWorkers:  cfg.MaxSessions,
		IdleTimeout: cfg.IdleWorkerTimeout,
		OnPanic: func(v interface{}) {
			s.logger.Error("session panic: %v", v)
			s.metrics.RecordError("session panic")
		},
	})
	return s, nil
}

// Address returns the configured bind address.
func (s *Server) Address() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start binds the listening socket and runs the accept loop until Stop
// is called.  Bind failures are returned immediately as a
// *errors.NetworkError.  After a successful bind Start blocks and
// returns nil once the server has been stopped.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.stopRequested {
		s.mu.Unlock()
		return errors.ErrServerClosed
	}
	if s.used {
		s.mu.Unlock()
		return errors.ErrAlreadyStarted
	}
	s.used = true
	s.state.Store(int32(Starting))

	addr := s.Address()
	ln, err := transport.ListenTCP(context.Background(), addr)
	if err != nil {
		s.state.Store(int32(Stopped))
		close(s.acceptDone)
		s.mu.Unlock()
		s.logger.Error("listen on %s: %v", addr, err)
		return errors.Wrap("listen", addr, err)
	}
	s.ln = ln
	s.running.Store(true)
	s.state.Store(int32(Running))
	s.mu.Unlock()

	s.logger.Info("listening on %s", ln.Addr())
	close(s.ready)

	defer close(s.acceptDone)
	return s.acceptLoop(ln)
}

func (s *Server) acceptLoop(ln net.Listener) error {
	backoff := retry.AcceptBackoff()
	failures := 0

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			failures++
			s.logger.Warn("accept: %v", err)
			s.metrics.RecordError(err.Error())
			select {
			case <-s.quit:
				return nil
			case <-time.After(backoff.Delay(failures)):
			}
			continue
		}
		failures = 0

		sess := session.New(conn, session.Options{
			Capability:    s.resp,
			Logger:        s.logger,
			Metrics:       s.metrics,
			MaxLineLength: s.cfg.MaxLineLength,
		})
		if err := s.pool.Submit(func(ctx context.Context) {
			if err := sess.Run(ctx); err != nil {
				s.logger.Verbose("session %s ended: %v", sess.ID(), err)
			}
		}); err != nil {
			s.logger.Verbose("rejecting %s: %v", sess.ID(), err)
			sess.Close()
		}
	}
}

// Stop shuts the server down: it stops accepting, waits up to the
// grace period for sessions to finish, then closes whatever remains.
// Stop is safe to call more than once and from several goroutines;
// every call returns after the shutdown has completed.  Calling Stop
// before Start prevents the server from ever starting.
func (s *Server) Stop() {
	s.stopOnce.Do(s.stop)
}

func (s *Server) stop() {
	start := time.Now()

	s.mu.Lock()
	s.stopRequested = true
	started := s.used
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()

	s.running.Store(false)
	close(s.quit)

	if !started {
		s.pool.Shutdown(0)
		return
	}
	s.state.Store(int32(Stopping))
	s.logger.Info("shutting down")

	if ln != nil {
		if err := ln.Close(); err != nil && !util.IsHarmless(err) {
			s.logger.Warn("close listener: %v", err)
		}
	}
	<-s.acceptDone

	if forced := s.pool.Shutdown(s.cfg.GracePeriod); forced > 0 {
		s.logger.Warn("grace period %s elapsed, forced %d session(s) closed", s.cfg.GracePeriod, forced)
		s.metrics.SessionsForced(forced)
	}

	s.state.Store(int32(Stopped))
	s.logger.Info("server stopped after %s", util.Since(start))
}

// Ready is closed once the socket is bound and connections are being
// accepted.  It never closes if Start fails.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or nil when not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// State returns the lifecycle stage.
func (s *Server) State() State { return State(s.state.Load()) }
