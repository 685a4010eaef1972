package adsb

// Mode-S CRC-24 parity table: element j corresponds to the j-th data bit
// (counting from the first bit after the preamble). For a 112-bit message
// the whole table is used; for a 56-bit message only the last 56 elements
// apply, so the caller passes an `offset` of 56 for short frames. Checksum
// is the XOR of every table entry whose corresponding message bit is set.
// The final 24 entries are zero: the trailing checksum field itself must
// not perturb the computation.
var crcParityTable = [112]uint32{
	0x3935ea, 0x1c9af5, 0xf1b77e, 0x78dbbf, 0xc397db, 0x9e31e9, 0xb0e2f0, 0x587178,
	0x2c38bc, 0x161c5e, 0x0b0e2f, 0xfa7d13, 0x82c48d, 0xbe9842, 0x5f4c21, 0xd05c14,
	0x682e0a, 0x341705, 0xe5f186, 0x72f8c3, 0xc68665, 0x9cb936, 0x4e5c9b, 0xd8d449,
	0x939020, 0x49c810, 0x24e408, 0x127204, 0x093902, 0x049c81, 0xfdb444, 0x7eda22,
	0x3f6d11, 0xe04c8c, 0x702646, 0x381323, 0xe3f395, 0x8e03ce, 0x4701e7, 0xdc7af7,
	0x91c77f, 0xb719bb, 0xa476d9, 0xadc168, 0x56e0b4, 0x2b705a, 0x15b82d, 0xf52612,
	0x7a9309, 0xc2b380, 0x6159c0, 0x30ace0, 0x185670, 0x0c2b38, 0x06159c, 0x030ace,
	0x018567, 0xff38b7, 0x80665f, 0xbfc92b, 0xa01e91, 0xaff54c, 0x57faa6, 0x2bfd53,
	0xea04ad, 0x8af852, 0x457c29, 0xdd4410, 0x6ea208, 0x375104, 0x1ba882, 0x0dd441,
	0xf91024, 0x7c8812, 0x3e4409, 0xe0d800, 0x706c00, 0x383600, 0x1c1b00, 0x0e0d80,
	0x0706c0, 0x038360, 0x01c1b0, 0x00e0d8, 0x00706c, 0x003836, 0x001c1b, 0xfff409,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
}

// CRC24 computes the 24-bit Mode-S checksum over the first `bits` bits of
// msg (spec section 4.3).
func CRC24(msg []byte, bits int) uint32 {
	offset := 0
	if bits != 112 {
		offset = 112 - 56
	}

	var crc uint32
	for j := 0; j < bits; j++ {
		byteIdx := j / 8
		bitMask := byte(1) << (7 - uint(j%8))
		if msg[byteIdx]&bitMask != 0 {
			crc ^= crcParityTable[j+offset]
		}
	}
	return crc
}

func trailingCRC(msg []byte, bits int) uint32 {
	n := bits / 8
	return uint32(msg[n-3])<<16 | uint32(msg[n-2])<<8 | uint32(msg[n-1])
}

// FixSingleBitError tries every single bit flip in msg and returns the bit
// position that makes the trailing 24 bits match the recomputed checksum,
// mutating msg in place on success. Returns -1 on failure. Spec section
// 4.3 restricts the caller to applying this only for DF11 and DF17.
func FixSingleBitError(msg []byte, bits int) int {
	n := bits / 8
	aux := make([]byte, n)

	for j := 0; j < bits; j++ {
		byteIdx := j / 8
		bitMask := byte(1) << (7 - uint(j%8))

		copy(aux, msg[:n])
		aux[byteIdx] ^= bitMask

		if trailingCRC(aux, bits) == CRC24(aux, bits) {
			copy(msg[:n], aux)
			return j
		}
	}
	return -1
}

// FixTwoBitError tries every ordered pair of bit flips. Only meaningful
// for DF17 in aggressive mode per spec section 4.3; the two positions are
// encoded as j|(i<<8) in the return value, -1 on failure.
func FixTwoBitError(msg []byte, bits int) int {
	n := bits / 8
	aux := make([]byte, n)

	for j := 0; j < bits; j++ {
		byte1 := j / 8
		mask1 := byte(1) << (7 - uint(j%8))

		for i := j + 1; i < bits; i++ {
			byte2 := i / 8
			mask2 := byte(1) << (7 - uint(i%8))

			copy(aux, msg[:n])
			aux[byte1] ^= mask1
			aux[byte2] ^= mask2

			if trailingCRC(aux, bits) == CRC24(aux, bits) {
				copy(msg[:n], aux)
				return j | (i << 8)
			}
		}
	}
	return -1
}

// RecoverAddressFromAP XORs the computed CRC into the trailing three bytes
// to recover the address XOR-concealed in the AP field, per spec section
// 4.3. It does not mutate msg; the candidate address is returned for the
// caller to check against the ICAO cache (C6).
func RecoverAddressFromAP(msg []byte, bits int) uint32 {
	n := bits / 8
	crc := CRC24(msg, bits)

	b0 := msg[n-3] ^ byte(crc>>16)
	b1 := msg[n-2] ^ byte(crc>>8)
	b2 := msg[n-1] ^ byte(crc)

	return uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2)
}

// apCarriesAddress is the closed set of DFs whose trailing 24 bits equal
// CRC XOR ICAO address (spec section 4.3) rather than a plain checksum.
func apCarriesAddress(df int) bool {
	switch df {
	case 0, 4, 5, 16, 20, 21, 24:
		return true
	default:
		return false
	}
}
