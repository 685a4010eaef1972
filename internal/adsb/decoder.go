package adsb

import (
	"errors"
	"math"

	"go1090/internal/icaocache"
)

// ErrBadCRC is returned when a frame's checksum could not be validated or
// repaired (spec section 7: "Bad CRC, unrecoverable").
var ErrBadCRC = errors.New("adsb: bad crc")

// Counters receives decode-time observability events (spec section 7's
// "make all counters observable"). The concrete implementation lives in
// internal/metrics, kept behind this small interface so the decoder does
// not depend on the Prometheus client directly.
type Counters interface {
	Inc(name string)
	ObserveME(metype, mesub int)
}

type nopCounters struct{}

func (nopCounters) Inc(string)        {}
func (nopCounters) ObserveME(int, int) {}

// aisCharset is the 64-symbol alphabet dump1090-family decoders use for
// DF17 ME 1-4 callsigns (AISCharset in constants.go), as a rune slice for
// indexed lookup.
var aisCharset = []rune(AISCharset)

// Decoder turns raw demodulated frames into ModeSMessage values (C4),
// performing CRC validation/repair (C3) and AP-based address recovery
// against the ICAO cache (C6) along the way.
type Decoder struct {
	ICAOCache     *icaocache.Cache
	FixErrors     bool
	Aggressive    bool
	Counters      Counters
}

// NewDecoder builds a Decoder with the given ICAO whitelist cache.
func NewDecoder(cache *icaocache.Cache) *Decoder {
	return &Decoder{
		ICAOCache: cache,
		FixErrors: true,
		Counters:  nopCounters{},
	}
}

func messageLenByDF(df int) int {
	switch df {
	case 16, 17, 18, 19, 20, 21:
		return 112
	default:
		return 56
	}
}

// Decode populates mm from a raw demodulated buffer. raw must hold at
// least 14 bytes (unused trailing bytes for short frames are ignored).
// Returns ErrBadCRC if the checksum could not be validated or repaired.
func (d *Decoder) Decode(mm *ModeSMessage, raw []byte) error {
	copy(mm.Msg[:], raw)
	msg := mm.Msg[:]

	mm.DF = int(msg[0]) >> 3
	mm.Bits = messageLenByDF(mm.DF)

	mm.CRC = trailingCRC(msg, mm.Bits)
	computed := CRC24(msg, mm.Bits)
	mm.ErrorBit = -1
	mm.CRCOk = mm.CRC == computed

	if !mm.CRCOk && d.FixErrors && (mm.DF == 11 || mm.DF == 17) {
		if bit := FixSingleBitError(msg, mm.Bits); bit != -1 {
			mm.ErrorBit = bit
			mm.CRCOk = true
			d.Counters.Inc("fixed")
			d.Counters.Inc("single_bit_fix")
		} else if d.Aggressive && mm.DF == 17 {
			if bit := FixTwoBitError(msg, mm.Bits); bit != -1 {
				mm.ErrorBit = bit
				mm.CRCOk = true
				d.Counters.Inc("fixed")
				d.Counters.Inc("two_bits_fix")
			}
		}
	}

	mm.CA = int(msg[0]) & 7
	mm.AA[0], mm.AA[1], mm.AA[2] = msg[1], msg[2], msg[3]
	mm.METype = int(msg[4]) >> 3
	mm.MESubtype = int(msg[4]) & 7
	mm.FlightStatus = int(msg[0]) & 7
	mm.DR = (int(msg[1]) >> 3) & 31
	mm.UM = ((int(msg[1]) & 7) << 3) | (int(msg[2]) >> 5)
	mm.Identity = decodeSquawk(msg)

	if apCarriesAddress(mm.DF) {
		addr := RecoverAddressFromAP(msg, mm.Bits)
		if d.ICAOCache.Contains(addr) {
			mm.SetICAO(addr)
			mm.CRCOk = true
		} else {
			mm.CRCOk = false
		}
	} else if mm.CRCOk && mm.ErrorBit == -1 {
		d.ICAOCache.Insert(mm.ICAO())
	}

	if !mm.CRCOk {
		d.Counters.Inc("bad_CRC")
		return ErrBadCRC
	}

	switch mm.DF {
	case 0, 4, 16, 20:
		mm.Altitude, mm.Unit = decodeAC13Field(msg)
	}

	if mm.DF == 17 || mm.DF == 18 {
		decodeExtendedSquitter(mm, msg, d.Counters)
	}

	return nil
}

func decodeSquawk(msg []byte) int {
	a := ((msg[3] & 0x80) >> 5) | (msg[2] & 0x02) | ((msg[2] & 0x08) >> 3)
	b := ((msg[3] & 0x02) << 1) | ((msg[3] & 0x08) >> 2) | ((msg[3] & 0x20) >> 5)
	c := ((msg[2] & 0x01) << 2) | ((msg[2] & 0x04) >> 1) | ((msg[2] & 0x10) >> 4)
	e := ((msg[3] & 0x01) << 2) | ((msg[3] & 0x04) >> 1) | ((msg[3] & 0x10) >> 4)
	return int(a)*SquawkAMultiplier + int(b)*SquawkBMultiplier + int(c)*SquawkCMultiplier + int(e)*SquawkDMultiplier
}

// decodeAC13Field decodes the 13-bit altitude field used by DF 0,4,16,20.
// M=1 (meters) is left as an open question per spec section 9: reserved,
// returns 0.
func decodeAC13Field(msg []byte) (altitude int, unit AltitudeUnit) {
	mBit := msg[3] & (1 << 6)
	qBit := msg[3] & (1 << 4)

	if mBit != 0 {
		return 0, UnitMeters
	}

	unit = UnitFeet
	if qBit == 0 {
		return 0, unit
	}

	n := (int(msg[2]&31) << 6) | int((msg[3]&0x80)>>2) | int((msg[3]&0x20)>>1) | int(msg[3]&15)
	altitude = n*25 - 1000
	if altitude < 0 {
		altitude = 0
	}
	return altitude, unit
}

// decodeAC12Field decodes the 12-bit altitude field used by DF17 ME 9-18.
func decodeAC12Field(msg []byte) (altitude int, unit AltitudeUnit) {
	qBit := msg[5] & 1
	if qBit == 0 {
		return 0, UnitFeet
	}
	n := (uint16(msg[5]>>1) << 4) | uint16(msg[6]>>4)
	altitude = int(n)*25 - 1000
	if altitude < 0 {
		altitude = 0
	}
	return altitude, UnitFeet
}

func decodeExtendedSquitter(mm *ModeSMessage, msg []byte, counters Counters) {
	switch {
	case mm.METype >= 1 && mm.METype <= 4:
		mm.AircraftType = mm.METype - 1
		decodeCallsign(mm, msg)
	case mm.METype >= 9 && mm.METype <= 18:
		mm.OddFlag = msg[6]&(1<<2) != 0
		mm.UTCFlag = msg[6]&(1<<3) != 0
		mm.Altitude, mm.Unit = decodeAC12Field(msg)
		mm.RawLatitude = (int(msg[6]&3) << 15) | (int(msg[7]) << 7) | (int(msg[8]) >> 1)
		mm.RawLongitude = (int(msg[8]&1) << 16) | (int(msg[9]) << 8) | int(msg[10])
	case mm.METype == 19 && mm.MESubtype >= 1 && mm.MESubtype <= 4:
		decodeVelocity(mm, msg)
	case mm.METype == 29 || mm.METype == 31:
		counters.ObserveME(mm.METype, mm.MESubtype)
	default:
		counters.ObserveME(mm.METype, mm.MESubtype)
	}
}

func decodeCallsign(mm *ModeSMessage, msg []byte) {
	chars := [8]rune{
		aisCharset[msg[5]>>2],
		aisCharset[((msg[5]&3)<<4)|(msg[6]>>4)],
		aisCharset[((msg[6]&15)<<2)|(msg[7]>>6)],
		aisCharset[msg[7]&63],
		aisCharset[msg[8]>>2],
		aisCharset[((msg[8]&3)<<4)|(msg[9]>>4)],
		aisCharset[((msg[9]&15)<<2)|(msg[10]>>6)],
		aisCharset[msg[10]&63],
	}
	for i, r := range chars {
		mm.Flight[i] = byte(r)
	}
}

func decodeVelocity(mm *ModeSMessage, msg []byte) {
	if mm.MESubtype == 1 || mm.MESubtype == 2 {
		mm.EWDir = int(msg[5]&4) >> 2
		mm.EWVelocity = (int(msg[5]&3) << 8) | int(msg[6])
		mm.NSDir = int(msg[7]&0x80) >> 7
		mm.NSVelocity = (int(msg[7]&0x7f) << 3) | (int(msg[8]&0xe0) >> 5)
		mm.VertRateSource = int(msg[8]&0x10) >> 4
		mm.VertRateSign = int(msg[8]&0x8) >> 3
		mm.VertRate = (int(msg[8]&7) << 6) | (int(msg[9]&0xfc) >> 2)

		mm.Velocity = int(math.Sqrt(float64(mm.NSVelocity*mm.NSVelocity + mm.EWVelocity*mm.EWVelocity)))
		if mm.Velocity != 0 {
			ewv, nsv := mm.EWVelocity, mm.NSVelocity
			if mm.EWDir == 1 {
				ewv = -ewv
			}
			if mm.NSDir == 1 {
				nsv = -nsv
			}
			heading := math.Atan2(float64(ewv), float64(nsv))
			mm.Heading = int(heading * 360 / (2 * math.Pi))
			if mm.Heading < 0 {
				mm.Heading += 360
			}
			mm.HeadingValid = true
		}
	} else {
		mm.HeadingValid = msg[5]&(1<<2) != 0
		mm.Heading = int((360.0 / 128) * float64(((int(msg[5])&3)<<5)|(int(msg[6])>>3)))
	}
}
