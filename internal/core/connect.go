package core

import (
	"context"
	"io"
	"os"

	"gecho/internal/client"
)

// ConnectMode runs one interactive client session against a remote
// server.
type ConnectMode struct {
	Client *client.Client

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) Run(ctx context.Context) error {
	return m.Client.Run(ctx, stdin(m.Stdin), stdout(m.Stdout))
}

func stdin(r io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return os.Stdin
}

func stdout(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}
