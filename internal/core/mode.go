// Package core is the orchestration layer.  It composes the server
// and the interactive client into complete operational modes and
// provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	protocol → capability → session → dispatch → server/client → core → cmd
package core

import "context"

// Mode represents a complete operational mode of gecho (serve,
// connect, or demo).  Each mode owns its full lifecycle from start to
// teardown and returns once ctx is cancelled or its work is done.
type Mode interface {
	Run(ctx context.Context) error
}
