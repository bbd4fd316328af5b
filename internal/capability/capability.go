// Package capability defines how a session answers an ordinary
// request line.  Each Capability encapsulates a single transform and
// knows nothing about sockets or the termination keyword, which keeps
// the response logic testable on plain strings.
package capability

import (
	"fmt"
	"sort"
	"strings"

	"gecho/internal/errors"
	"gecho/internal/protocol"
)

// Capability maps one request line to its response line (without the
// trailing newline).
type Capability interface {
	Respond(line string) string
}

// Echo returns the line unchanged behind the echo prefix.  It is the
// default capability.
type Echo struct{}

// Respond implements Capability.
func (Echo) Respond(line string) string { return protocol.Echo(line) }

// Upper echoes the line converted to upper case.
type Upper struct{}

// Respond implements Capability.
func (Upper) Respond(line string) string { return protocol.Echo(strings.ToUpper(line)) }

var registry = map[string]Capability{
	"echo":  Echo{},
	"upper": Upper{},
}

// ByName looks up a capability by its --transform name.
func ByName(name string) (Capability, error) {
	c, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &errors.ConfigError{
			Field:   "transform",
			Value:   name,
			Message: "unknown transform",
			Hint:    fmt.Sprintf("choose one of: %s", strings.Join(Names(), ", ")),
		}
	}
	return c, nil
}

// Names lists the registered capability names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
