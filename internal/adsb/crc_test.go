package adsb

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestCRC24_KnownGoodFrame(t *testing.T) {
	msg := decodeHex(t, "8D4B969699155600E87406F5B69F")
	crc := CRC24(msg, 112)
	trailing := trailingCRC(msg, 112)
	assert.Equal(t, trailing, crc)
}

func TestFixSingleBitError_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		msg := decodeHex(t, "8D4B969699155600E87406F5B69F")
		require.Equal(t, trailingCRC(msg, 112), CRC24(msg, 112))

		bit := rapid.IntRange(0, 111).Draw(rt, "bit")
		byteIdx := bit / 8
		mask := byte(1) << (7 - uint(bit%8))
		msg[byteIdx] ^= mask

		assert.NotEqual(t, trailingCRC(msg, 112), CRC24(msg, 112))
		assert.Equal(t, bit, FixSingleBitError(msg, 112))
		assert.Equal(t, trailingCRC(msg, 112), CRC24(msg, 112))
	})
}

func TestRecoverAddressFromAP(t *testing.T) {
	// DF0 frame: AP field = CRC xor ICAO address.
	msg := make([]byte, 7)
	msg[0] = 0x00 << 3 // DF0
	addr := uint32(0x4B9696)

	crc := CRC24(msg, 56)
	msg[4] = byte(addr>>16) ^ byte(crc>>16)
	msg[5] = byte(addr>>8) ^ byte(crc>>8)
	msg[6] = byte(addr) ^ byte(crc)

	got := RecoverAddressFromAP(msg, 56)
	assert.Equal(t, addr, got)
}
