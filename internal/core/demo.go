package core

import (
	"context"
	"io"

	"gecho/internal/client"
	"gecho/internal/errors"
	"gecho/internal/server"
	"gecho/util"
)

// DemoMode starts a local server, drives one interactive client
// session against it, and stops the server when the session ends.
type DemoMode struct {
	Server *server.Server
	Client *client.Client
	Logger *util.Logger

	Stdin  io.Reader
	Stdout io.Writer
}

func (m *DemoMode) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- m.Server.Start() }()
	defer m.Server.Stop()

	select {
	case <-m.Server.Ready():
	case err := <-errCh:
		if err == nil {
			err = errors.New("server stopped before accepting connections")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	m.Logger.Verbose("demo server ready on %s", m.Server.Addr())
	return m.Client.Run(ctx, stdin(m.Stdin), stdout(m.Stdout))
}
