package network

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Kind identifies one of the five services of spec section 6.
type Kind string

const (
	RawOut Kind = "raw-out"
	RawIn  Kind = "raw-in"
	SBSOut Kind = "sbs-out"
	SBSIn  Kind = "sbs-in"
)

// LineHandler is invoked once per '\n'-terminated record received on a
// raw-in or sbs-in connection (spec section 4.8's "invoke the per-service
// line parser on \n-terminated records").
type LineHandler func(c *Connection, line string)

// Counters is the subset of internal/metrics.Registry a Service needs;
// kept as an interface so this package does not import metrics directly.
type Counters interface {
	AddServiceBytesIn(service string, n int)
	AddServiceBytesOut(service string, n int)
	IncServiceAccepted(service string)
	IncServiceRemoved(service string)
	IncServiceUnknown(service string)
}

type nopCounters struct{}

func (nopCounters) AddServiceBytesIn(string, int)  {}
func (nopCounters) AddServiceBytesOut(string, int) {}
func (nopCounters) IncServiceAccepted(string)      {}
func (nopCounters) IncServiceRemoved(string)        {}
func (nopCounters) IncServiceUnknown(string)        {}

// Service is one listening or connecting TCP handle plus its live
// Connection set (spec section 3). Raw-in and sbs-in additionally run a
// LineHandler per inbound record; raw-out and sbs-out are fan-out-only.
type Service struct {
	Kind    Kind
	Addr    string
	Active  bool          // active mode: outbound connect, not listen
	Connect time.Duration // connect timeout, active mode only

	OnLine LineHandler

	logger   logrus.FieldLogger
	counters Counters

	mu       sync.Mutex
	conns    map[string]*Connection
	listener net.Listener
	lastErr  string
}

// NewService constructs a Service. counters/logger may be nil.
func NewService(kind Kind, addr string, logger logrus.FieldLogger, counters Counters) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if counters == nil {
		counters = nopCounters{}
	}
	return &Service{
		Kind:     kind,
		Addr:     addr,
		logger:   logger,
		counters: counters,
		conns:    make(map[string]*Connection),
	}
}

// Start runs the service until ctx is cancelled: a passive service
// listens and accepts; an active service dials out once with Connect as
// the connect timeout (spec section 5: "active outbound connects get a
// fixed CONNECT_TIMEOUT; a timer fires a user-level error that trips the
// exit flag" -- here surfaced as a returned error the caller treats as
// fatal).
func (s *Service) Start(ctx context.Context) error {
	if s.Active {
		return s.runActive(ctx)
	}
	return s.runPassive(ctx)
}

func (s *Service) runPassive(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.setErr(err)
			continue
		}
		s.accept(ctx, conn)
	}
}

func (s *Service) runActive(ctx context.Context) error {
	dialer := net.Dialer{Timeout: s.Connect}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		s.setErr(err)
		return err
	}
	s.accept(ctx, conn)
	return nil
}

func (s *Service) accept(ctx context.Context, conn net.Conn) {
	c := newConnection(string(s.Kind), conn)
	s.mu.Lock()
	s.conns[c.ID] = c
	s.mu.Unlock()
	s.counters.IncServiceAccepted(string(s.Kind))

	go c.writeLoop()
	go s.readLoop(ctx, c)
}

func (s *Service) readLoop(ctx context.Context, c *Connection) {
	defer s.remove(c)

	sc := lineReader(c.conn)
	for sc.Scan() {
		line := sc.Text()
		s.counters.AddServiceBytesIn(string(s.Kind), len(line)+1)
		if s.OnLine != nil {
			s.OnLine(c, line)
		} else {
			s.counters.IncServiceUnknown(string(s.Kind))
		}
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}
	}
}

func (s *Service) remove(c *Connection) {
	c.Close()
	s.mu.Lock()
	delete(s.conns, c.ID)
	s.mu.Unlock()
	s.counters.IncServiceRemoved(string(s.Kind))
}

// SendAll fans a message out to every connected peer of this service
// (spec section 4.9's send_all). Drops are not signalled to the caller and
// are not counted: only bytes that Connection.Send actually enqueued are
// added to the service's bytes-out counter.
func (s *Service) SendAll(b []byte) {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if c.Send(b) {
			s.counters.AddServiceBytesOut(string(s.Kind), len(b))
		}
	}
}

// ConnectionCount returns the number of live connections on this service.
func (s *Service) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Service) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.logger.WithError(err).WithField("service", s.Kind).Warn("network service error")
}

// LastError returns the most recent per-service error string (spec
// section 7: "stored in the service's last_err string; printed at
// shutdown").
func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close shuts down the listener (if any) and every live connection, in
// no particular per-connection order (spec section 5: services close in
// reverse-allocation order relative to each other, not within).
func (s *Service) Close() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	conns := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.remove(c)
	}
}
