// Package session owns the lifecycle of one accepted connection: the
// read-respond loop, the termination handshake and the single close.
package session

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"gecho/internal/capability"
	"gecho/internal/errors"
	"gecho/internal/metrics"
	"gecho/internal/protocol"
	"gecho/util"
)

// State is the lifecycle stage of a Session.
type State int32

const (
	Connected State = iota
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options carries the collaborators a Session needs.  Only Capability
// is required.
type Options struct {
	Capability    capability.Capability
	Logger        *util.Logger
	Metrics       *metrics.Collector // may be nil
	MaxLineLength int
}

// Session serves one client connection.
type Session struct {
	conn    net.Conn
	id      string
	resp    capability.Capability
	logger  *util.Logger
	metrics *metrics.Collector
	maxLine int

	state     atomic.Int32
	closeOnce sync.Once
}

// New binds a Session to conn.  The connection is counted as opened
// immediately; Close balances it.
func New(conn net.Conn, opts Options) *Session {
	responder := opts.Capability
	if responder == nil {
		responder = capability.Echo{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	maxLine := opts.MaxLineLength
	if maxLine <= 0 {
		maxLine = util.DefaultBufSize
	}

	id := conn.RemoteAddr().String()
	s := &Session{
		conn:    conn,
		id:      id,
		resp:    responder,
		logger:  logger.With("remote", id),
		metrics: opts.Metrics,
		maxLine: maxLine,
	}
	s.metrics.ConnectionOpened()
	return s
}

// ID returns the remote address the session was accepted from.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle stage.  Safe for concurrent use.
func (s *Session) State() State { return State(s.state.Load()) }

// Close shuts the connection.  Only the first call has any effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closing))
		if err := s.conn.Close(); err != nil && !util.IsHarmless(err) {
			s.logger.Verbose("close: %v", err)
		}
		s.state.Store(int32(Closed))
		s.metrics.ConnectionClosed()
		s.logger.Info("client disconnected")
	})
}

// Run reads request lines and writes one response per line until the
// client sends the termination keyword, closes its side, or an I/O
// error occurs.  Cancelling ctx closes the connection, which unblocks
// a pending read.  The connection is always closed when Run returns.
//
// A clean end of session (EOF or termination) returns nil.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	s.logger.Info("client connected")

	lr := protocol.NewLineReader(s.conn, s.maxLine)
	defer lr.Release()

	for {
		line, err := lr.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Verbose("client closed the connection")
				return nil
			}
			if ctx.Err() != nil {
				s.logger.Verbose("session closed by server shutdown")
				return nil
			}
			if util.IsHarmless(err) {
				return nil
			}
			s.logger.Error("read: %v", err)
			s.metrics.RecordError(err.Error())
			return errors.Wrap("read", s.id, err)
		}
		s.metrics.BytesReceived(int64(len(line) + 1))
		s.logger.Debug("received %q", line)

		if protocol.IsTermination(line) {
			s.metrics.TerminationReceived()
			if err := s.write(ctx, protocol.Farewell); err != nil {
				return err
			}
			s.logger.Verbose("termination requested")
			return nil
		}

		if err := s.write(ctx, s.resp.Respond(line)); err != nil {
			return err
		}
		s.metrics.MessageAnswered()
	}
}

func (s *Session) write(ctx context.Context, resp string) error {
	if err := protocol.WriteLine(s.conn, resp); err != nil {
		if ctx.Err() != nil || util.IsHarmless(err) {
			s.logger.Verbose("write after close: %v", err)
			return nil
		}
		s.logger.Error("write: %v", err)
		s.metrics.RecordError(err.Error())
		return errors.Wrap("write", s.id, err)
	}
	s.metrics.BytesSent(int64(len(resp) + 1))
	return nil
}
