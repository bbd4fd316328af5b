package core

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gecho/config"
	"gecho/util"
)

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func serveConfig(t *testing.T) *config.Config {
	t.Helper()
	port, err := util.FindFreePortIn(40001, 49000)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Listen = true
	cfg.Host = "127.0.0.1"
	cfg.LocalPort = port
	cfg.GracePeriod = 500 * time.Millisecond
	return cfg
}

func TestServeMode_RunUntilCancelled(t *testing.T) {
	cfg := serveConfig(t)
	var logs syncBuffer
	logger := util.NewLogger(2)
	logger.SetOutput(&logs)

	mode, err := Build(cfg, logger)
	require.NoError(t, err)
	sm := mode.(*ServeMode)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mode.Run(ctx) }()

	select {
	case <-sm.Server.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server not ready")
	}

	conn, err := net.Dial("tcp", util.FormatAddr("127.0.0.1", cfg.LocalPort))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("ping\n"))
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Echo: ping\n", reply)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("ServeMode did not stop after cancel")
	}
	assert.Equal(t, int64(1), sm.Metrics.TotalConnections())
	assert.Contains(t, logs.String(), "[VRB] final metrics:")
	assert.Contains(t, logs.String(), `"connections_total": 1`)
	assert.Contains(t, logs.String(), `"messages": 1`)
}

func TestServeMode_BindFailure(t *testing.T) {
	cfg := serveConfig(t)
	ln, err := net.Listen("tcp", util.FormatAddr("127.0.0.1", cfg.LocalPort))
	require.NoError(t, err)
	defer ln.Close()

	mode, err := Build(cfg, util.NewLogger(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = mode.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestConnectMode_Run(t *testing.T) {
	scfg := serveConfig(t)
	srvMode, err := Build(scfg, util.NewLogger(0))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srvMode.Run(ctx) //nolint:errcheck
	<-srvMode.(*ServeMode).Server.Ready()

	cfg := config.Default()
	cfg.Host, cfg.Port = "127.0.0.1", scfg.LocalPort
	mode, err := Build(cfg, util.NewLogger(0))
	require.NoError(t, err)

	var out bytes.Buffer
	cm := mode.(*ConnectMode)
	cm.Stdin = strings.NewReader("one\ntwo\nbye\n")
	cm.Stdout = &out

	require.NoError(t, cm.Run(ctx))
	assert.Contains(t, out.String(), "Echo: one\nEcho: two\nGoodbye!\n")
}

func TestDemoMode_Run(t *testing.T) {
	port, err := util.FindFreePortIn(40001, 49000)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Demo = true
	cfg.LocalPort = port

	mode, err := Build(cfg, util.NewLogger(0))
	require.NoError(t, err)
	dm := mode.(*DemoMode)

	var out bytes.Buffer
	dm.Stdin = strings.NewReader("Hello, server\nbye\n")
	dm.Stdout = &out

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, dm.Run(ctx))

	assert.Contains(t, out.String(), "Echo: Hello, server\nGoodbye!\n")
	assert.Nil(t, dm.Server.Addr(), "demo server is stopped afterwards")
}
