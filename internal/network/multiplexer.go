package network

import (
	"context"
	"sync"
)

// Multiplexer owns the four TCP services (raw-out, raw-in, sbs-out,
// sbs-in); the HTTP service lives in internal/httpapi since it is
// naturally net/http-shaped rather than line-oriented, but is started
// and stopped alongside these in the same reverse-allocation order (spec
// section 5).
type Multiplexer struct {
	RawOut *Service
	RawIn  *Service
	SBSOut *Service
	SBSIn  *Service

	wg sync.WaitGroup
}

// Start launches every configured service (nil entries are skipped,
// allowing a deployment to omit a service entirely) on its own
// goroutine.
func (m *Multiplexer) Start(ctx context.Context, onErr func(Kind, error)) {
	for _, svc := range m.services() {
		svc := svc
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := svc.Start(ctx); err != nil && ctx.Err() == nil && onErr != nil {
				onErr(svc.Kind, err)
			}
		}()
	}
}

func (m *Multiplexer) services() []*Service {
	var out []*Service
	for _, svc := range []*Service{m.RawOut, m.RawIn, m.SBSOut, m.SBSIn} {
		if svc != nil {
			out = append(out, svc)
		}
	}
	return out
}

// Close shuts every service down in reverse-allocation order (spec
// section 5) and waits for their goroutines to return.
func (m *Multiplexer) Close() {
	svcs := m.services()
	for i := len(svcs) - 1; i >= 0; i-- {
		svcs[i].Close()
	}
	m.wg.Wait()
}

// BroadcastRaw sends the raw `*HEX;\n` line form to every raw-out client
// (spec section 4.9 step 5).
func (m *Multiplexer) BroadcastRaw(line string) {
	if m.RawOut == nil {
		return
	}
	m.RawOut.SendAll([]byte(line))
}

// BroadcastSBS sends a Base-Station CSV line to every sbs-out client
// (spec section 4.9 step 3).
func (m *Multiplexer) BroadcastSBS(line string) {
	if m.SBSOut == nil {
		return
	}
	m.SBSOut.SendAll([]byte(line))
}

// HasSBSClients reports whether any sbs-out client is currently
// connected (spec section 4.9 step 3's gating condition).
func (m *Multiplexer) HasSBSClients() bool {
	return m.SBSOut != nil && m.SBSOut.ConnectionCount() > 0
}

// IsHeartbeat reports whether a raw-in line is exactly the `*0000;`
// heartbeat (spec section 6), by literal string comparison.
func IsHeartbeat(line string) bool {
	return line == "*0000;"
}
