// Package client implements the interactive line client: it relays
// operator input to a gecho server one line at a time and prints each
// response.
package client

import (
	"context"
	"fmt"
	"io"
	"net"

	"golang.org/x/term"

	"gecho/config"
	"gecho/internal/errors"
	"gecho/internal/protocol"
	"gecho/internal/retry"
	"gecho/internal/transport"
	"gecho/util"
)

// Client is an interactive session driver.  It is used once per Run.
type Client struct {
	cfg     config.ClientConfig
	maxLine int
	dialer  transport.Dialer
	backoff *retry.Backoff
	logger  *util.Logger
}

// New validates cfg.  No network activity happens until Run.
func New(cfg config.ClientConfig, logger *util.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}

	maxLine := cfg.MaxLineLength
	if maxLine == 0 {
		maxLine = config.DefaultMaxLineLength
	}

	b := retry.DefaultBackoff()
	b.MaxAttempts = cfg.ConnectAttempts
	if b.MaxAttempts < 1 {
		b.MaxAttempts = 1
	}

	return &Client{
		cfg:     cfg,
		maxLine: maxLine,
		dialer:  &transport.TCPDialer{Timeout: cfg.Timeout},
		backoff: b,
		logger:  logger,
	}, nil
}

// Address returns the target as host:port.
func (c *Client) Address() string { return util.FormatAddr(c.cfg.Host, c.cfg.Port) }

// Run connects and relays lines from in to the server, writing every
// response line to out.  It returns nil when in is exhausted or after
// the termination keyword has been acknowledged.  Cancelling ctx
// closes the connection and makes Run return ctx.Err().
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer c.dialer.Close()

	addr := c.Address()
	conn, err := c.connect(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.logger.Verbose("connected to %s", conn.RemoteAddr())
	fmt.Fprintf(out, "connected to %s\n", addr)
	fmt.Fprintf(out, "type a message and press enter; %q ends the session\n", protocol.TerminationKeyword)

	prompt := isTerminal(in)
	done := make(chan struct{})
	defer close(done)
	input := readLines(in, c.maxLine, done)
	// A reply is the request plus the echo prefix.
	replies := protocol.NewLineReader(conn, c.maxLine+len(protocol.EchoPrefix))
	defer replies.Release()

	for {
		if prompt {
			fmt.Fprint(out, "> ")
		}

		var line inputLine
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line = <-input:
		}
		if line.err != nil {
			if errors.Is(line.err, io.EOF) {
				c.logger.Verbose("end of input")
				return nil
			}
			return fmt.Errorf("read input: %w", line.err)
		}

		if err := protocol.WriteLine(conn, line.text); err != nil {
			return c.ioError(ctx, "write", addr, err)
		}
		reply, err := replies.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return c.ioError(ctx, "read", addr, err)
		}
		fmt.Fprintln(out, reply)

		if protocol.IsTermination(line.text) {
			c.logger.Verbose("session terminated")
			return nil
		}
	}
}

func (c *Client) connect(ctx context.Context, addr string) (net.Conn, error) {
	var conn net.Conn
	err := c.backoff.Do(ctx, func(attempt int) error {
		cn, err := c.dialer.Dial(ctx, "tcp", addr)
		if err != nil {
			if errors.IsUnknownHost(err) || !errors.IsRetryable(err) {
				return retry.Permanent(err)
			}
			c.logger.Verbose("connect attempt %d to %s: %v", attempt, addr, err)
			return err
		}
		conn = cn
		return nil
	})
	if err == nil {
		return conn, nil
	}

	if errors.IsUnknownHost(err) {
		return nil, fmt.Errorf("%w %q: %v", errors.ErrUnknownHost, c.cfg.Host, err)
	}
	return nil, errors.Wrap("connect", addr, err)
}

func (c *Client) ioError(ctx context.Context, op, addr string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Wrap(op, addr, err)
}

type inputLine struct {
	text string
	err  error
}

// readLines scans in on its own goroutine so a blocked terminal read
// cannot hold up cancellation.  The goroutine exits at end of input or
// once done is closed and its pending read returns.
func readLines(in io.Reader, limit int, done <-chan struct{}) <-chan inputLine {
	ch := make(chan inputLine)
	go func() {
		lr := protocol.NewLineReader(in, limit)
		defer lr.Release()
		for {
			text, err := lr.ReadLine()
			select {
			case ch <- inputLine{text: text, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
