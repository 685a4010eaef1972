// Package router implements the message router (C9): the single entry
// point spec section 4.9 describes, called for every frame that passes
// CRC, pumping it through the tracker and every configured output in the
// documented order of effects.
package router

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/basestation"
	"go1090/internal/network"
	"go1090/internal/tracker"
)

// Counters is the subset of internal/metrics.Registry the router needs.
type Counters interface {
	IncMessagesTotal()
}

// Router is C9's single entry point, constructed once in main and given
// every frame that clears CRC validation/repair.
type Router struct {
	Tracker     *tracker.Tracker
	Network     *network.Multiplexer
	SBSWriter   *basestation.Writer
	Metrics     Counters
	Logger      logrus.FieldLogger
	Interactive bool // a terminal UI or other always-on consumer is attached
	HTTPEnabled bool
	Silent      bool
	NowFunc     func() time.Time
}

func (r *Router) now() time.Time {
	if r.NowFunc != nil {
		return r.NowFunc()
	}
	return time.Now()
}

// needsTrackerUpdate implements spec section 4.9 step 2's gate:
// "if interactive or any SBS/HTTP client exists".
func (r *Router) needsTrackerUpdate() bool {
	if r.Interactive || r.HTTPEnabled {
		return true
	}
	return r.Network != nil && r.Network.HasSBSClients()
}

// Route implements the five-step order of effects of spec section 4.9.
func (r *Router) Route(mm *adsb.ModeSMessage) {
	// (1) bump messages_total
	if r.Metrics != nil {
		r.Metrics.IncMessagesTotal()
	}

	now := r.now()

	// (2) update the tracker if anything downstream needs aircraft state
	var ac *tracker.Aircraft
	if r.needsTrackerUpdate() && r.Tracker != nil {
		ac = r.Tracker.Receive(mm, now)
	}

	// (3) SBS fan-out, if any sbs-out client is connected
	if r.Network != nil && r.Network.HasSBSClients() {
		var lat, lon float64
		var haveLatLon bool
		if ac != nil && ac.Position.Valid() {
			lat, lon, haveLatLon = ac.Position.Lat, ac.Position.Lon, true
		}
		sbs := basestation.FromModeSMessage(mm, lat, lon, haveLatLon, now)
		line := basestation.FormatCSV(sbs)
		r.Network.BroadcastSBS(line + "\n")
		if r.SBSWriter != nil {
			if err := r.SBSWriter.WriteLine(line); err != nil && r.Logger != nil {
				r.Logger.WithError(err).Debug("failed to persist SBS line")
			}
		}
	}

	// (4) pretty-print to stdout, unless interactive (owns the terminal)
	// or silenced
	if !r.Interactive && !r.Silent {
		fmt.Println(PrettyPrint(mm))
	}

	// (5) raw hex fan-out, always (best-effort; dropped if no raw-out
	// clients are connected)
	if r.Network != nil {
		line := network.EncodeRawLine(mm.Msg[:], mm.Bits)
		r.Network.BroadcastRaw(line + "\n")
	}
}

// PrettyPrint renders a one-line human-readable summary of mm, the
// non-interactive stdout form named in spec section 4.9 step 4.
func PrettyPrint(mm *adsb.ModeSMessage) string {
	base := fmt.Sprintf("DF%d ICAO=%06X CRC=%v", mm.DF, mm.ICAO(), mm.CRCOk)
	switch mm.DF {
	case 17, 18:
		switch {
		case mm.METype >= 1 && mm.METype <= 4:
			return fmt.Sprintf("%s ME=%d FLIGHT=%q", base, mm.METype, mm.FlightString())
		case mm.METype >= 9 && mm.METype <= 18:
			return fmt.Sprintf("%s ME=%d ALT=%dft", base, mm.METype, mm.Altitude)
		case mm.METype == 19:
			return fmt.Sprintf("%s ME=19/%d SPEED=%d HDG=%d", base, mm.MESubtype, mm.Velocity, mm.Heading)
		}
	case 4, 20:
		return fmt.Sprintf("%s ALT=%dft", base, mm.Altitude)
	case 5, 21:
		return fmt.Sprintf("%s SQUAWK=%04d", base, mm.Identity)
	}
	return base
}
