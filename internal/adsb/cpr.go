package adsb

import (
	"math"

	"github.com/golang/geo/s2"
)

const cprMax = 131072.0 // 2^17, CPRLatMax/CPRLonMax as a float

// CPRPair is one odd and one even globally-unambiguous position report
// for the same aircraft (spec section 4.5). The caller (the aircraft
// tracker, C7) owns the scratch state; this package is stateless.
type CPRPair struct {
	EvenLat, EvenLon int
	OddLat, OddLon   int
	// OddIsNewer selects which frame's latitude/longitude anchors the
	// resolved fix: true uses the odd frame (rlat1/lon1), false the even
	// frame (rlat0/lon0). The two anchors agree to within the zone's NL
	// spacing, so either is globally unambiguous once NLTable(rlat0) ==
	// NLTable(rlat1); the tracker picks even (see tryResolveCPR) to match
	// the worked example in spec section 4.5.
	OddIsNewer bool
}

// cprModInt is the always-positive modulo used throughout CPR decoding.
func cprModInt(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

// NLTable returns the number of longitude zones at the given latitude,
// per the standard 59-band table (spec section 4.5/4.6, monotone
// non-increasing from 59 at the equator to 1 at |lat| >= 87).
func NLTable(lat float64) int {
	absLat := math.Abs(lat)

	switch {
	case absLat < 10.47047130:
		return 59
	case absLat < 14.82817437:
		return 58
	case absLat < 18.18626357:
		return 57
	case absLat < 21.02939493:
		return 56
	case absLat < 23.54504487:
		return 55
	case absLat < 25.82924707:
		return 54
	case absLat < 27.93898710:
		return 53
	case absLat < 29.91135686:
		return 52
	case absLat < 31.77209708:
		return 51
	case absLat < 33.53993436:
		return 50
	case absLat < 35.22899598:
		return 49
	case absLat < 36.85025108:
		return 48
	case absLat < 38.41241892:
		return 47
	case absLat < 39.92256684:
		return 46
	case absLat < 41.38651832:
		return 45
	case absLat < 42.80914012:
		return 44
	case absLat < 44.19454951:
		return 43
	case absLat < 45.54626723:
		return 42
	case absLat < 46.86733252:
		return 41
	case absLat < 48.16039128:
		return 40
	case absLat < 49.42776439:
		return 39
	case absLat < 50.67150166:
		return 38
	case absLat < 51.89342469:
		return 37
	case absLat < 53.09516153:
		return 36
	case absLat < 54.27817472:
		return 35
	case absLat < 55.44378444:
		return 34
	case absLat < 56.59318756:
		return 33
	case absLat < 57.72747354:
		return 32
	case absLat < 58.84763776:
		return 31
	case absLat < 59.95459277:
		return 30
	case absLat < 61.04917774:
		return 29
	case absLat < 62.13216659:
		return 28
	case absLat < 63.20427479:
		return 27
	case absLat < 64.26616523:
		return 26
	case absLat < 65.31845310:
		return 25
	case absLat < 66.36171008:
		return 24
	case absLat < 67.39646774:
		return 23
	case absLat < 68.42322022:
		return 22
	case absLat < 69.44242631:
		return 21
	case absLat < 70.45451075:
		return 20
	case absLat < 71.45986473:
		return 19
	case absLat < 72.45884545:
		return 18
	case absLat < 73.45177442:
		return 17
	case absLat < 74.43893416:
		return 16
	case absLat < 75.42056257:
		return 15
	case absLat < 76.39684391:
		return 14
	case absLat < 77.36789461:
		return 13
	case absLat < 78.33374083:
		return 12
	case absLat < 79.29428225:
		return 11
	case absLat < 80.24923213:
		return 10
	case absLat < 81.19801349:
		return 9
	case absLat < 82.13956981:
		return 8
	case absLat < 83.07199445:
		return 7
	case absLat < 83.99173563:
		return 6
	case absLat < 84.89166191:
		return 5
	case absLat < 85.75541621:
		return 4
	case absLat < 86.53536998:
		return 3
	case absLat < 87.00000000:
		return 2
	default:
		return 1
	}
}

func cprNFunction(lat float64, isOdd int) int {
	n := NLTable(lat) - isOdd
	if n < 1 {
		n = 1
	}
	return n
}

func cprDlonFunction(lat float64, isOdd int) float64 {
	return 360.0 / float64(cprNFunction(lat, isOdd))
}

// ResolvePosition implements the globally-unambiguous CPR algorithm of
// spec section 4.5. ok is false if the pair straddles a latitude zone
// boundary and must be discarded.
func ResolvePosition(p CPRPair) (lat, lon float64, ok bool) {
	lat0 := float64(p.EvenLat)
	lat1 := float64(p.OddLat)
	lon0 := float64(p.EvenLon)
	lon1 := float64(p.OddLon)

	j := int(math.Floor(((59*lat0 - 60*lat1) / cprMax) + 0.5))
	rlat0 := airDlat0 * (float64(cprModInt(j, 60)) + lat0/cprMax)
	rlat1 := airDlat1 * (float64(cprModInt(j, 59)) + lat1/cprMax)

	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if NLTable(rlat0) != NLTable(rlat1) {
		return 0, 0, false
	}

	var rlat float64
	var ni int
	var m float64
	if p.OddIsNewer {
		ni = cprNFunction(rlat1, 1)
		m = math.Floor((lon0*float64(NLTable(rlat1)-1)-lon1*float64(NLTable(rlat1)))/cprMax + 0.5)
		lon = cprDlonFunction(rlat1, 1) * (float64(cprModInt(int(m), ni)) + lon1/cprMax)
		rlat = rlat1
	} else {
		ni = cprNFunction(rlat0, 0)
		m = math.Floor((lon0*float64(NLTable(rlat0)-1)-lon1*float64(NLTable(rlat0)))/cprMax + 0.5)
		lon = cprDlonFunction(rlat0, 0) * (float64(cprModInt(int(m), ni)) + lon0/cprMax)
		rlat = rlat0
	}

	if lon > 180 {
		lon -= 360
	}

	return rlat, lon, true
}

// GreatCircleDistanceMeters returns the distance between two lat/lon
// points in meters, via s2's angular distance on the unit sphere scaled
// by Earth's radius (spec section 4.5).
func GreatCircleDistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	const earthRadiusMeters = 6371000.0
	return p1.Distance(p2).Radians() * earthRadiusMeters
}
