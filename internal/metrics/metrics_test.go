package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DecodeCount(t *testing.T) {
	r := New()

	assert.Equal(t, 0.0, r.DecodeCount("bad_CRC"))

	r.Inc("bad_CRC")
	r.Inc("bad_CRC")
	r.Inc("fixed")

	assert.Equal(t, 2.0, r.DecodeCount("bad_CRC"))
	assert.Equal(t, 1.0, r.DecodeCount("fixed"))
	assert.Equal(t, 0.0, r.DecodeCount("two_bits_fix"))
}

func TestRegistry_MEHistogram(t *testing.T) {
	r := New()

	r.ObserveME(29, 0)
	r.ObserveME(29, 0)
	r.ObserveME(31, 2)

	hist := r.MEHistogram()
	assert.Equal(t, uint64(2), hist[[2]int{29, 0}])
	assert.Equal(t, uint64(1), hist[[2]int{31, 2}])
}

func TestRegistry_MessagesTotal(t *testing.T) {
	r := New()
	r.IncMessagesTotal()
	r.IncMessagesTotal()
	r.IncMessagesTotal()

	m := &dto.Metric{}
	require.NoError(t, r.messagesTotal.Write(m))
	assert.Equal(t, 3.0, m.GetCounter().GetValue())

	var got float64
	assert.NotPanics(t, func() { got = readCounterVec(r.decodeCounters, "nonexistent") })
	assert.Equal(t, 0.0, got)
}

func TestRegistry_ServiceSnapshot(t *testing.T) {
	r := New()

	r.AddServiceBytesIn("raw-in", 100)
	r.AddServiceBytesOut("raw-in", 50)
	r.IncServiceAccepted("raw-in")
	r.IncServiceAccepted("raw-in")
	r.IncServiceRemoved("raw-in")
	r.IncServiceUnknown("raw-in")

	snap := r.ServiceSnapshot("raw-in")
	assert.Equal(t, ServiceCounters{
		BytesIn:  100,
		BytesOut: 50,
		Accepted: 2,
		Removed:  1,
		Unknown:  1,
	}, snap)

	assert.Equal(t, ServiceCounters{}, r.ServiceSnapshot("sbs-out"))
}
