package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DemoPort is the port the --demo entry point serves on.
	DemoPort = 8080

	// DefaultClientHost is the target host for the demo client.
	DefaultClientHost = "localhost"

	// Server bind ports are restricted to the registered range minus
	// its edges; client target ports accept the full registered range.
	MinServerPort = 1025
	MaxServerPort = 49150
	MinClientPort = 1024
	MaxClientPort = 49151

	// DefaultMaxSessions caps concurrently running sessions; further
	// accepted connections wait in the dispatch queue.
	DefaultMaxSessions = 1024

	// DefaultIdleWorkerTimeout is how long an idle worker lingers
	// before exiting.
	DefaultIdleWorkerTimeout = 30 * time.Second

	// DefaultGracePeriod is how long Stop waits for sessions to finish
	// before forcing them closed.
	DefaultGracePeriod = 5 * time.Second

	// DefaultMaxLineLength bounds a single request line.
	DefaultMaxLineLength = 64 * 1024

	// DefaultTransform names the response capability.
	DefaultTransform = "echo"

	// DefaultConnTimeout is the client TCP connection timeout.
	DefaultConnTimeout = 10 * time.Second

	// DefaultConnectAttempts is how many times the client dials before
	// giving up.  The demo mode raises it to ride out server startup.
	DefaultConnectAttempts = 1

	// DefaultVerbosity is the log level when neither -v nor -q is given.
	DefaultVerbosity = 1
)
