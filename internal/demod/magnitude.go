// Package demod implements the magnitude lookup table (C1) and the
// preamble-detecting, bit-slicing demodulator (C2) described in spec
// sections 4.1 and 4.2. Its shape (a Demodulator holding stat counters and
// a logrus logger, exposing Process/Stats entry points) is grounded on
// the teacher's internal/adsb.Processor; its inner algorithm is the
// literal 2 Ms/s magnitude-LUT decoder the teacher's 2.4 Ms/s
// phase-correlation approach does not implement.
package demod

import "math"

const lutDim = 129

// MagnitudeLUT is the precomputed 129x129 I/Q -> magnitude table (C1).
// Entry [i*129+q] = round(360*sqrt(i^2+q^2)) for i,q in [0,128].
type MagnitudeLUT struct {
	table [lutDim * lutDim]uint16
}

// NewMagnitudeLUT builds the table once at startup.
func NewMagnitudeLUT() *MagnitudeLUT {
	lut := &MagnitudeLUT{}
	for i := 0; i < lutDim; i++ {
		for q := 0; q < lutDim; q++ {
			mag := 360.0 * math.Sqrt(float64(i*i+q*q))
			lut.table[i*lutDim+q] = uint16(math.Round(mag))
		}
	}
	return lut
}

// Lookup folds the negative half-axes of I/Q samples centered on 127
// before indexing the table.
func (l *MagnitudeLUT) Lookup(i, q byte) uint16 {
	di := absDiff(i, 127)
	dq := absDiff(q, 127)
	return l.table[int(di)*lutDim+int(dq)]
}

func absDiff(v, center byte) byte {
	if v > center {
		return v - center
	}
	return center - v
}

// ComputeMagnitudeVector turns an interleaved I/Q byte buffer into the
// parallel u16 magnitude vector used by the demodulator.
func (l *MagnitudeLUT) ComputeMagnitudeVector(iq []byte, out []uint16) []uint16 {
	n := len(iq) / 2
	if cap(out) < n {
		out = make([]uint16, n)
	}
	out = out[:n]
	for k := 0; k < n; k++ {
		out[k] = l.Lookup(iq[2*k], iq[2*k+1])
	}
	return out
}
