package router

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090/internal/adsb"
	"go1090/internal/network"
	"go1090/internal/tracker"
)

type countingMetrics struct{ n int }

func (c *countingMetrics) IncMessagesTotal() { c.n++ }

func velocityMessage(addr uint32) *adsb.ModeSMessage {
	var mm adsb.ModeSMessage
	mm.DF = 17
	mm.SetICAO(addr)
	mm.METype = 19
	mm.MESubtype = 1
	mm.Velocity = 200
	mm.Bits = 112
	return &mm
}

// freePort reserves a port then releases it immediately so a Service can
// bind the same number (small, accepted race for test purposes).
func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRoute_BumpsMessageCounter(t *testing.T) {
	metrics := &countingMetrics{}
	r := &Router{Metrics: metrics, Silent: true}

	r.Route(velocityMessage(0x4B9696))
	r.Route(velocityMessage(0x4B9696))

	assert.Equal(t, 2, metrics.n)
}

func TestNeedsTrackerUpdate(t *testing.T) {
	r := &Router{}
	assert.False(t, r.needsTrackerUpdate())

	r.Interactive = true
	assert.True(t, r.needsTrackerUpdate())

	r.Interactive = false
	r.HTTPEnabled = true
	assert.True(t, r.needsTrackerUpdate())
}

func TestRoute_UpdatesTrackerOnlyWhenNeeded(t *testing.T) {
	tr := tracker.New(60*time.Second, nil)
	r := &Router{Tracker: tr, Silent: true}

	r.Route(velocityMessage(0x112233))
	assert.Equal(t, 0, tr.Count(), "tracker must not update when nothing downstream needs aircraft state")

	r.HTTPEnabled = true
	r.Route(velocityMessage(0x112233))
	assert.Equal(t, 1, tr.Count())
}

func TestRoute_BroadcastsRawAlways(t *testing.T) {
	addr := freePort(t)
	svc := network.NewService(network.RawOut, addr, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Start(ctx) }()

	conn := dialUntilReady(t, addr)
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	mux := &network.Multiplexer{RawOut: svc}
	r := &Router{Network: mux, Silent: true}
	r.Route(velocityMessage(0x4B9696))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "*"))
}

func TestPrettyPrint_VelocityFrame(t *testing.T) {
	mm := velocityMessage(0x4B9696)
	mm.CRCOk = true
	mm.Heading = 183

	out := PrettyPrint(mm)
	assert.Contains(t, out, "DF17")
	assert.Contains(t, out, "4B9696")
	assert.Contains(t, out, "SPEED=200")
	assert.Contains(t, out, "HDG=183")
}

func dialUntilReady(t *testing.T, addr string) net.Conn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			return conn
		}
		lastErr = err
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("listener never started: %v", lastErr)
	return nil
}
