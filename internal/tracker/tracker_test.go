package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go1090/internal/adsb"
)

func airbornePositionMessage(addr uint32, odd bool, rawLat, rawLon int) *adsb.ModeSMessage {
	var mm adsb.ModeSMessage
	mm.DF = 17
	mm.SetICAO(addr)
	mm.METype = 11
	mm.OddFlag = odd
	mm.RawLatitude = rawLat
	mm.RawLongitude = rawLon
	return &mm
}

// TestReceive_ResolvesCPRPair implements spec section 8 scenario 2: an
// even frame at t=0 and an odd frame ten seconds later resolve to a
// single globally-unambiguous position.
func TestReceive_ResolvesCPRPair(t *testing.T) {
	tr := New(60*time.Second, nil)
	t0 := time.Unix(1700000000, 0)

	const addr = uint32(0x40621D)

	tr.Receive(airbornePositionMessage(addr, false, 93000, 51372), t0)
	tr.Receive(airbornePositionMessage(addr, true, 74158, 50194), t0.Add(10*time.Second))

	a, ok := tr.Get(addr)
	if !assert.True(t, ok) {
		return
	}

	assert.InDelta(t, 52.2572, a.Position.Lat, 0.001)
	assert.InDelta(t, 3.9193, a.Position.Lon, 0.001)
}

// TestReceive_StalePairNotResolved verifies that an odd/even pair
// further apart than CPRPairMaxAgeMS is left unresolved (spec section
// 4.5).
func TestReceive_StalePairNotResolved(t *testing.T) {
	tr := New(60*time.Second, nil)
	t0 := time.Unix(1700000000, 0)

	const addr = uint32(0x40621D)

	tr.Receive(airbornePositionMessage(addr, false, 93000, 51372), t0)
	tr.Receive(airbornePositionMessage(addr, true, 74158, 50194), t0.Add(11*time.Minute))

	a, ok := tr.Get(addr)
	if !assert.True(t, ok) {
		return
	}
	assert.False(t, a.Position.Valid())
}

// TestTick_TTLEviction implements spec section 8 scenario 4: after ttl
// seconds of silence an aircraft moves FirstTime -> Normal -> LastTime,
// then is evicted on the following tick.
func TestTick_TTLEviction(t *testing.T) {
	tr := New(60*time.Second, nil)
	t0 := time.Unix(1700000000, 0)

	var mm adsb.ModeSMessage
	mm.DF = 17
	mm.SetICAO(0xABCDEF)
	mm.METype = 19
	mm.MESubtype = 0 // not velocity/heading-bearing, keeps the test focused on TTL

	tr.Receive(&mm, t0)

	a, ok := tr.Get(0xABCDEF)
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, FirstTime, a.Show)

	tr.Tick(t0)
	a, _ = tr.Get(0xABCDEF)
	assert.Equal(t, Normal, a.Show)

	tr.Tick(t0.Add(61 * time.Second))
	a, _ = tr.Get(0xABCDEF)
	assert.Equal(t, LastTime, a.Show)

	removed := tr.Tick(t0.Add(62 * time.Second))
	assert.Equal(t, []uint32{0xABCDEF}, removed)
	assert.Equal(t, 0, tr.Count())
}

// TestCount_NoDuplicateAddresses feeds 100 messages for one address and
// asserts exactly one tracked record results (spec section 8's invariant).
func TestCount_NoDuplicateAddresses(t *testing.T) {
	tr := New(60*time.Second, nil)
	t0 := time.Unix(1700000000, 0)

	for i := 0; i < 100; i++ {
		var mm adsb.ModeSMessage
		mm.DF = 17
		mm.SetICAO(0x112233)
		mm.METype = 19
		tr.Receive(&mm, t0.Add(time.Duration(i)*time.Millisecond))
	}

	assert.Equal(t, 1, tr.Count())
}

func TestDistance_ComputedAgainstHomePosition(t *testing.T) {
	home := &HomePosition{Lat: 52.3676, Lon: 4.9041}
	tr := New(60*time.Second, home)
	t0 := time.Unix(1700000000, 0)

	const addr = uint32(0x40621D)
	tr.Receive(airbornePositionMessage(addr, false, 93000, 51372), t0)
	tr.Receive(airbornePositionMessage(addr, true, 74158, 50194), t0.Add(10*time.Second))

	a, ok := tr.Get(addr)
	if !assert.True(t, ok) {
		return
	}
	assert.Greater(t, a.Distance, 0.0)
}
