// Package tracker implements the live aircraft fleet (C7): one record per
// observed ICAO address, CPR position resolution on airborne-position
// messages, dead-reckoning position estimation, and the FIRST_TIME /
// NORMAL / LAST_TIME / NONE render/eviction state machine of spec section
// 4.7. It is grounded on Regentag's Sky/Aircraft shape (address-keyed map
// guarded by one mutex, UpdateData/RemoveStaleAircrafts), generalized per
// the design notes in spec section 9 to an address-keyed map plus an
// insertion-ordered index instead of an intrusive linked list.
package tracker

import (
	"sort"
	"sync"
	"time"

	"go1090/internal/adsb"
)

// Show is the render/eviction lifecycle state of spec section 4.7.
type Show int

const (
	FirstTime Show = iota
	Normal
	LastTime
	None
)

// InvalidCoordinate is the sentinel for "no resolved position yet"
// (spec section 3: "±1000 sentinel = invalid").
const InvalidCoordinate = 1000.0

// Position is a resolved or estimated lat/lon pair, degrees.
type Position struct {
	Lat, Lon float64
}

// Valid reports whether p differs from the invalid sentinel.
func (p Position) Valid() bool {
	return p.Lat != InvalidCoordinate && p.Lon != InvalidCoordinate
}

// Aircraft is one observed ICAO address's complete tracked state
// (spec section 3). Field access must go through the owning Tracker's
// lock; Aircraft itself has no internal synchronization.
type Aircraft struct {
	Addr         uint32
	Flight       [8]byte
	Altitude     int
	Speed        int
	Heading      int
	HeadingValid bool
	Identity     int

	SeenFirst int64 // unix ms
	SeenLast  int64 // unix ms
	Messages  uint64

	SigLevels [4]float64
	sigIdx    int

	// CPR scratch (spec section 3).
	OddLat, OddLon   int
	OddTimeMS        int64
	EvenLat, EvenLon int
	EvenTimeMS       int64

	Position    Position
	posTimeMS   int64 // unix ms when Position was last resolved
	EstPosition Position
	EstSeenLast int64
	Distance    float64
	EstDistance float64

	Show Show
}

// FlightString renders the 8-byte flight id field trimmed of padding.
func (a *Aircraft) FlightString() string {
	n := len(a.Flight)
	for n > 0 && (a.Flight[n-1] == ' ' || a.Flight[n-1] == 0) {
		n--
	}
	return string(a.Flight[:n])
}

func (a *Aircraft) pushSigLevel(level float64) {
	a.SigLevels[a.sigIdx%len(a.SigLevels)] = level
	a.sigIdx++
}

// HomePosition is the receiver's own location (spec section 6,
// DUMP1090_HOMEPOS), used for distance computation. A nil *HomePosition
// on the Tracker means distance is never populated.
type HomePosition struct {
	Lat, Lon float64
}

// Tracker owns the live fleet: an address-keyed map plus an
// insertion-ordered index (spec section 9's redesign note), a single
// mutex, and the TTL eviction policy.
type Tracker struct {
	mu       sync.Mutex
	byAddr   map[uint32]*Aircraft
	order    []uint32
	ttl      time.Duration
	home     *HomePosition
	nowFunc  func() time.Time
}

// New constructs a Tracker with the given interactive TTL and optional
// receiver home position.
func New(ttl time.Duration, home *HomePosition) *Tracker {
	return &Tracker{
		byAddr:  make(map[uint32]*Aircraft),
		ttl:     ttl,
		home:    home,
		nowFunc: time.Now,
	}
}

func (t *Tracker) now() time.Time { return t.nowFunc() }

// findOrCreate returns the existing record for addr or allocates a new
// one, per spec section 4.7. Caller must hold t.mu.
func (t *Tracker) findOrCreate(addr uint32, now time.Time) *Aircraft {
	if a, ok := t.byAddr[addr]; ok {
		return a
	}
	nowMS := now.UnixMilli()
	a := &Aircraft{
		Addr:      addr,
		SeenFirst: nowMS,
		SeenLast:  nowMS,
		Show:      FirstTime,
		Position:  Position{Lat: InvalidCoordinate, Lon: InvalidCoordinate},
	}
	t.byAddr[addr] = a
	t.order = append(t.order, addr)
	return a
}

// Receive updates tracked state from a decoded Mode-S message (spec
// section 4.7's receive contract): pushes sig_level into the ring,
// applies per-DF/ME field updates, and resolves CPR pairs.
func (t *Tracker) Receive(mm *adsb.ModeSMessage, now time.Time) *Aircraft {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.findOrCreate(mm.ICAO(), now)
	a.SeenLast = now.UnixMilli()
	a.Messages++
	a.pushSigLevel(mm.SigLevel)

	switch mm.DF {
	case 0, 4, 16, 20:
		a.Altitude = mm.Altitude
	case 5, 21:
		a.Identity = mm.Identity
	case 17, 18:
		t.applyExtendedSquitter(a, mm, now)
	}

	return a
}

func (t *Tracker) applyExtendedSquitter(a *Aircraft, mm *adsb.ModeSMessage, now time.Time) {
	switch {
	case mm.METype >= 1 && mm.METype <= 4:
		a.Flight = mm.Flight

	case mm.METype >= 9 && mm.METype <= 18:
		a.Altitude = mm.Altitude
		nowMS := now.UnixMilli()
		if mm.OddFlag {
			a.OddLat, a.OddLon, a.OddTimeMS = mm.RawLatitude, mm.RawLongitude, nowMS
		} else {
			a.EvenLat, a.EvenLon, a.EvenTimeMS = mm.RawLatitude, mm.RawLongitude, nowMS
		}
		t.tryResolveCPR(a)

	case mm.METype == 19 && (mm.MESubtype == 1 || mm.MESubtype == 2):
		a.Speed = mm.Velocity
		if mm.HeadingValid {
			a.Heading = mm.Heading
			a.HeadingValid = true
		}
		t.updateEstimate(a, now)

	case mm.METype == 19 && (mm.MESubtype == 3 || mm.MESubtype == 4):
		if mm.HeadingValid {
			a.Heading = mm.Heading
			a.HeadingValid = true
		}
		t.updateEstimate(a, now)
	}
}

// tryResolveCPR resolves the odd/even CPR scratch pair into a.Position
// if both halves are present and within the 10-minute window (spec
// section 3 and 4.5). An unresolvable pair (zone straddle, stale) leaves
// the aircraft's previous position untouched (spec section 7). The even
// frame anchors the fix (adsb.CPRPair.OddIsNewer: false): both anchors
// resolve to the same NL zone and agree to well within the CPR encoding's
// own precision, so anchoring on even rather than whichever half arrived
// last is immaterial to accuracy and matches spec section 4.5's worked
// example.
func (t *Tracker) tryResolveCPR(a *Aircraft) {
	if a.OddTimeMS == 0 || a.EvenTimeMS == 0 {
		return
	}
	age := a.OddTimeMS - a.EvenTimeMS
	if age < 0 {
		age = -age
	}
	if age > adsb.CPRPairMaxAgeMS {
		return
	}

	lat, lon, ok := adsb.ResolvePosition(adsb.CPRPair{
		EvenLat: a.EvenLat, EvenLon: a.EvenLon,
		OddLat: a.OddLat, OddLon: a.OddLon,
		OddIsNewer: false,
	})
	if !ok {
		return
	}

	a.Position = Position{Lat: lat, Lon: lon}
	a.posTimeMS = a.SeenLast
	if t.home != nil {
		a.Distance = adsb.GreatCircleDistanceMeters(t.home.Lat, t.home.Lon, lat, lon)
	}
	a.EstPosition = a.Position
	a.EstSeenLast = a.SeenLast
	a.EstDistance = a.Distance
}

// updateEstimate extrapolates a.EstPosition from the last confirmed
// position using the current speed/heading (spec section 4.5's
// dead-reckoning estimator).
func (t *Tracker) updateEstimate(a *Aircraft, now time.Time) {
	if !a.Position.Valid() || !a.HeadingValid || a.Speed <= 0 {
		return
	}
	elapsed := now.Sub(time.UnixMilli(a.posTimeMS)).Seconds()
	lat, lon := adsb.EstimatePosition(a.Position.Lat, a.Position.Lon, float64(a.Speed), float64(a.Heading), elapsed)
	a.EstPosition = Position{Lat: lat, Lon: lon}
	a.EstSeenLast = now.UnixMilli()
	if t.home != nil {
		a.EstDistance = adsb.GreatCircleDistanceMeters(t.home.Lat, t.home.Lon, lat, lon)
	}
}

// Tick advances the show state machine (spec section 4.7) and evicts any
// aircraft that reached None. Returns the addresses removed this tick.
func (t *Tracker) Tick(now time.Time) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []uint32
	keep := t.order[:0]
	for _, addr := range t.order {
		a := t.byAddr[addr]
		switch a.Show {
		case FirstTime:
			a.Show = Normal
		case Normal:
			if now.UnixMilli()-a.SeenLast > t.ttl.Milliseconds() {
				a.Show = LastTime
			}
		case LastTime:
			a.Show = None
		}

		if a.Show == None {
			delete(t.byAddr, addr)
			removed = append(removed, addr)
			continue
		}
		keep = append(keep, addr)
	}
	t.order = keep

	return removed
}

// Count returns the number of tracked aircraft (never contains
// duplicate addresses, per spec section 8's invariant).
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byAddr)
}

// Snapshot returns a copy of every tracked aircraft, ordered by address
// for deterministic JSON output.
func (t *Tracker) Snapshot() []Aircraft {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Aircraft, 0, len(t.byAddr))
	for _, a := range t.byAddr {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Get returns a copy of the tracked record for addr, if any.
func (t *Tracker) Get(addr uint32) (Aircraft, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.byAddr[addr]
	if !ok {
		return Aircraft{}, false
	}
	return *a, true
}
