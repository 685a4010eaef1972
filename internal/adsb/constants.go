package adsb

// AISCharset is the 6-bit, 64-symbol alphabet used to encode flight
// identification (callsign) characters in DF17 ME types 1-4.
const AISCharset = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_ !\"#$%&'()*+,-./0123456789:;<=>?"

// CPR decoding constants.
const (
	CPRLatBits = 17
	CPRLonBits = 17
	CPRLatMax  = 131072 // 2^17
	CPRLonMax  = 131072 // 2^17

	airDlat0 = 360.0 / 60
	airDlat1 = 360.0 / 59

	// CPRPairMaxAgeMS is the maximum time, in milliseconds, between an
	// odd and even CPR sample for the pair to still be resolved.
	CPRPairMaxAgeMS = 10 * 60 * 1000
)

// ICAOCacheTTLSeconds is the recently-seen window used both by the ICAO
// cache (C6) and by AP recovery (C3).
const ICAOCacheTTLSeconds = 60

// AircraftTTLSeconds is the default time an aircraft record survives
// without a new message before it is evicted from the tracker (C7).
const AircraftTTLSeconds = 60

// Squawk code bit manipulation constants (Gillham-encoded 4-digit octal
// identity, DF 5 and 21).
const (
	SquawkA4A2A1Mask = 0x07
	SquawkB4B2B1Mask = 0x07
	SquawkC4C2C1Mask = 0x07
	SquawkD4D2D1Mask = 0x07

	SquawkA4A2A1Shift = 9
	SquawkB4B2B1Shift = 6
	SquawkC4C2C1Shift = 3
	SquawkD4D2D1Shift = 0

	SquawkAMultiplier = 1000
	SquawkBMultiplier = 100
	SquawkCMultiplier = 10
	SquawkDMultiplier = 1
)

// Altitude units.
type AltitudeUnit int

const (
	UnitFeet AltitudeUnit = iota
	UnitMeters
)
