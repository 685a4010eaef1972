package network

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AcceptAndBroadcast(t *testing.T) {
	svc := NewService(RawOut, "127.0.0.1:0", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		// runPassive blocks in Listen+Accept; give it a moment to bind
		// before we look up its address.
		close(started)
		_ = svc.Start(ctx)
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	addr := waitForListener(t, svc)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	svc.SendAll([]byte("*8D4B969699155600E87406F5B69F;\n"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "*8D4B969699155600E87406F5B69F;\n", line)

	assert.Equal(t, 1, svc.ConnectionCount())
}

func TestService_OnLineInvokedPerRecord(t *testing.T) {
	svc := NewService(RawIn, "127.0.0.1:0", nil, nil)

	received := make(chan string, 4)
	svc.OnLine = func(c *Connection, line string) {
		received <- line
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = svc.Start(ctx) }()
	addr := waitForListener(t, svc)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*0000;\n"))
	require.NoError(t, err)

	select {
	case line := <-received:
		assert.Equal(t, "*0000;", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnLine")
	}
}

func waitForListener(t *testing.T, svc *Service) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		svc.mu.Lock()
		ln := svc.listener
		svc.mu.Unlock()
		if ln != nil {
			return ln.Addr().String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("listener never started")
	return ""
}
