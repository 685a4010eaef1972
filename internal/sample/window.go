// Package sample implements the sample source adapter (C10): the two
// backends named in spec section 4.10 (an RTL-SDR device callback and a
// file replay reader) merging into the rolling sample window described in
// spec section 3, guarded by the single mutex and two suspension points
// of spec section 5.
package sample

import (
	"context"
	"sync"

	"go1090/internal/demod"
)

// Window is the rolling byte buffer of interleaved I/Q samples described
// in spec section 3: length DataLen + 4*(FullLen-1), carrying the last
// 4*(FullLen-1) bytes of the previous fill forward so a frame straddling
// two fills is still detectable.
type Window struct {
	mu    sync.Mutex
	buf   []byte
	ready bool
	dataLen int
	carry   int
}

// NewWindow allocates a Window sized for dataLen bytes of new samples per
// fill plus the carried-forward tail.
func NewWindow(dataLen int) *Window {
	carry := demod.WindowCarryBytes()
	return &Window{
		buf:     make([]byte, carry+dataLen),
		dataLen: dataLen,
		carry:   carry,
	}
}

// Fill is called by the producer (device callback goroutine, or the file
// reader on its own goroutine) with exactly one buffer of new samples. It
// shifts the carried-forward tail to the start, copies data in after it,
// and raises the ready flag. Hold time is bounded to one memcpy (spec
// section 5).
func (w *Window) Fill(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	copy(w.buf, w.buf[len(w.buf)-w.carry:])
	n := copy(w.buf[w.carry:], data)
	if n < w.dataLen {
		// Short read (e.g. end of file, no --loop): zero the remainder
		// so a stale tail from the previous fill is never redecoded.
		for i := w.carry + n; i < len(w.buf); i++ {
			w.buf[i] = 0
		}
	}
	w.ready = true
}

// TakeReady copies out the current window and clears the ready flag if
// set. ok is false if no new data has arrived since the last TakeReady.
func (w *Window) TakeReady(dst []byte) (n int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.ready {
		return 0, false
	}
	n = copy(dst, w.buf)
	w.ready = false
	return n, true
}

// Len is the total byte length of one window (carry + dataLen).
func (w *Window) Len() int { return len(w.buf) }

// Source is the C10 contract: a producer that delivers sample buffers to
// a Window until ctx is cancelled. Exactly two concrete Sources exist:
// DeviceSource (device.go, wrapping an internal/rtlsdr device) and the
// file replay reader FileSource (file.go).
type Source interface {
	// Run blocks, feeding w.Fill with successive buffers, until ctx is
	// cancelled or the source is exhausted (file, no --loop).
	Run(ctx context.Context, w *Window) error
}
