package util

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePortIn returns an available TCP port within [lo, hi].  The
// kernel's ephemeral range usually lies above the registered range,
// so callers that must honour a port window probe it directly.
func FindFreePortIn(lo, hi int) (int, error) {
	if lo < 1 || hi > 65535 || lo > hi {
		return 0, fmt.Errorf("invalid port window %d-%d", lo, hi)
	}
	span := hi - lo + 1
	start := rand.Intn(span)
	for i := 0; i < span; i++ {
		port := lo + (start+i)%span
		l, err := net.Listen("tcp", FormatAddr("127.0.0.1", port))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port in %d-%d", lo, hi)
}
