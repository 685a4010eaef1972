// Package metrics is the counter/gauge backing for the decode-time
// observables named in spec section 7 ("make all counters observable"):
// CRC outcomes, per-service network accounting, the router's message
// total, and the unknown-ME (type, subtype) histogram. The demodulator's
// own counters (valid_preamble, ...) live in demod.Stats instead. Counters
// are Prometheus primitives so they can also be scraped conventionally,
// but that is incidental -- they are read back for the periodic and
// shutdown stats dump (see internal/app); /data/receiver.json does not
// carry them.
package metrics

import (
	"fmt"
	"sync"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every counter the core touches. One Registry is
// constructed in main and threaded through the decoder, the network
// services, and the message router.
type Registry struct {
	reg *prometheus.Registry

	decodeCounters *prometheus.CounterVec
	meHistogram    *prometheus.CounterVec

	serviceBytesIn    *prometheus.CounterVec
	serviceBytesOut   *prometheus.CounterVec
	serviceAccepted   *prometheus.CounterVec
	serviceRemoved    *prometheus.CounterVec
	serviceUnknown    *prometheus.CounterVec

	messagesTotal prometheus.Counter

	mu       sync.Mutex
	meCounts map[[2]int]uint64
}

// New constructs and registers every metric this repository defines.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		decodeCounters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "go1090_decode_events_total",
			Help: "Decode pipeline outcome counters (bad_CRC, fixed, single_bit_fix, ...).",
		}, []string{"event"}),
		meHistogram: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "go1090_unknown_me_total",
			Help: "Histogram of (type,subtype) pairs seen in DF17 ME fields.",
		}, []string{"type", "subtype"}),
		serviceBytesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "go1090_service_bytes_in_total",
			Help: "Bytes received per network service.",
		}, []string{"service"}),
		serviceBytesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "go1090_service_bytes_out_total",
			Help: "Bytes sent per network service.",
		}, []string{"service"}),
		serviceAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "go1090_service_accepted_total",
			Help: "Connections accepted per network service.",
		}, []string{"service"}),
		serviceRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "go1090_service_removed_total",
			Help: "Connections removed per network service.",
		}, []string{"service"}),
		serviceUnknown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "go1090_service_unknown_total",
			Help: "Unrecognized records per network service.",
		}, []string{"service"}),
		messagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "go1090_messages_total",
			Help: "Total decoded Mode-S messages routed (C9 step 1).",
		}),
		meCounts: make(map[[2]int]uint64),
	}

	reg.MustRegister(r.decodeCounters, r.meHistogram, r.serviceBytesIn,
		r.serviceBytesOut, r.serviceAccepted, r.serviceRemoved,
		r.serviceUnknown, r.messagesTotal)

	return r
}

// Registerer exposes the underlying prometheus.Registerer, e.g. for an
// HTTP /metrics handler -- kept separate from the spec's own counters
// contract.
func (r *Registry) Registerer() prometheus.Registerer { return r.reg }

// Inc implements adsb.Counters: bumps one named decode-event counter.
func (r *Registry) Inc(name string) {
	r.decodeCounters.WithLabelValues(name).Inc()
}

// ObserveME implements adsb.Counters: records one (type,subtype) sighting.
func (r *Registry) ObserveME(metype, mesub int) {
	r.meHistogram.WithLabelValues(fmt.Sprintf("%d", metype), fmt.Sprintf("%d", mesub)).Inc()

	r.mu.Lock()
	r.meCounts[[2]int{metype, mesub}]++
	r.mu.Unlock()
}

// MEHistogram returns a snapshot of the (type,subtype) histogram.
func (r *Registry) MEHistogram() map[[2]int]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[[2]int]uint64, len(r.meCounts))
	for k, v := range r.meCounts {
		out[k] = v
	}
	return out
}

// IncMessagesTotal bumps the router's top-level message counter (C9 step 1).
func (r *Registry) IncMessagesTotal() { r.messagesTotal.Inc() }

// DecodeCount returns the current value of a named decode counter.
func (r *Registry) DecodeCount(name string) float64 {
	return readCounterVec(r.decodeCounters, name)
}

// ServiceCounters is a read-only snapshot of one service's accounting,
// matching spec section 3's per-Service counters.
type ServiceCounters struct {
	BytesIn, BytesOut           uint64
	Accepted, Removed, Unknown  uint64
}

// AddServiceBytesIn/Out/Accepted/Removed/Unknown update per-service
// counters; ServiceSnapshot reads them back for the stats dump.
func (r *Registry) AddServiceBytesIn(service string, n int) {
	r.serviceBytesIn.WithLabelValues(service).Add(float64(n))
}
func (r *Registry) AddServiceBytesOut(service string, n int) {
	r.serviceBytesOut.WithLabelValues(service).Add(float64(n))
}
func (r *Registry) IncServiceAccepted(service string) { r.serviceAccepted.WithLabelValues(service).Inc() }
func (r *Registry) IncServiceRemoved(service string)  { r.serviceRemoved.WithLabelValues(service).Inc() }
func (r *Registry) IncServiceUnknown(service string)  { r.serviceUnknown.WithLabelValues(service).Inc() }

func (r *Registry) ServiceSnapshot(service string) ServiceCounters {
	return ServiceCounters{
		BytesIn:  uint64(readCounterVec(r.serviceBytesIn, service)),
		BytesOut: uint64(readCounterVec(r.serviceBytesOut, service)),
		Accepted: uint64(readCounterVec(r.serviceAccepted, service)),
		Removed:  uint64(readCounterVec(r.serviceRemoved, service)),
		Unknown:  uint64(readCounterVec(r.serviceUnknown, service)),
	}
}

func readCounterVec(vec *prometheus.CounterVec, label string) float64 {
	m := &dto.Metric{}
	if err := vec.WithLabelValues(label).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
