// Package icaocache implements the recently-seen-ICAO-address whitelist
// used by AP recovery (spec section 4.3, component C6).
//
// A generic TTL map (e.g. patrickmn/go-cache, used elsewhere in this
// repository's HTTP static file server) cannot stand in here: the spec
// makes the cache's collision behavior an explicit testable invariant
// ("hit rate is a strict function of inserts within TTL ... and no other
// address collided into the same slot"), which requires a fixed-size,
// open-addressed array with no chaining — not a hash map that silently
// grows and never collides.
package icaocache

import (
	"sync"
	"time"
)

const defaultSize = 1 << 17 // 2^17 slots, per spec section 4.6

// TTL is the window within which a stored address counts as recently
// seen (spec section 3, section 4.6: 60 seconds).
const TTL = 60 * time.Second

type slot struct {
	addr    uint32
	seconds int64
	valid   bool
}

// Cache is a fixed, power-of-two-sized, open-addressed array of recently
// seen ICAO addresses. It never chains: a hash collision silently
// overwrites whatever address previously occupied the slot.
type Cache struct {
	mu    sync.Mutex
	slots []slot
	mask  uint32
	now   func() time.Time
}

// New allocates a cache with `size` slots, rounded down to the nearest
// power of two if not already one. size<=0 selects the spec default.
func New(size int) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	size = nextPow2Floor(size)

	return &Cache{
		slots: make([]slot, size),
		mask:  uint32(size - 1),
		now:   time.Now,
	}
}

func nextPow2Floor(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// hash applies three rounds of xor-multiply mixing (spec section 4.6)
// and masks to the table size.
func (c *Cache) hash(addr uint32) uint32 {
	a := addr
	for i := 0; i < 3; i++ {
		a = ((a >> 16) ^ a) * 0x45D9F3B
	}
	return a & c.mask
}

// Insert records addr as seen at the current time, overwriting whatever
// previously occupied the target slot.
func (c *Cache) Insert(addr uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.hash(addr)
	c.slots[idx] = slot{addr: addr, seconds: c.now().Unix(), valid: true}
}

// Contains reports whether addr was inserted within the last TTL and has
// not since been displaced by a colliding address.
func (c *Cache) Contains(addr uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.hash(addr)
	s := c.slots[idx]
	if !s.valid || s.addr != addr {
		return false
	}
	return c.now().Unix()-s.seconds <= int64(TTL/time.Second)
}

// Len returns the number of occupied slots; for diagnostics only, not a
// reliable count of distinct addresses (collisions overwrite).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, s := range c.slots {
		if s.valid {
			n++
		}
	}
	return n
}
