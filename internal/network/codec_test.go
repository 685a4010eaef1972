package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRawLine_RoundTrip(t *testing.T) {
	raw := []byte{0x8D, 0x4B, 0x96, 0x96, 0x99, 0x15, 0x56, 0x00, 0xE8, 0x74, 0x06, 0xF5, 0xB6, 0x9F}

	line := EncodeRawLine(raw, 112)
	assert.Equal(t, "*8D4B969699155600E87406F5B69F;", line)

	decoded, err := DecodeRawLine(line)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestEncodeRawLine_ShortFrame(t *testing.T) {
	raw := [14]byte{0x02, 0xE1, 0x96, 0xB0, 0x55, 0x55, 0x55}
	line := EncodeRawLine(raw[:], 56)
	assert.Equal(t, "*02E196B0555555;", line)
}

func TestDecodeRawLine_Malformed(t *testing.T) {
	for _, line := range []string{"", "nope", "*missing-semicolon", "*ZZ;"} {
		_, err := DecodeRawLine(line)
		assert.Error(t, err, line)
	}
}

// TestIsHeartbeat implements spec section 8 scenario 3: the raw-in
// `*0000;` line is recognized without attempting to decode it.
func TestIsHeartbeat(t *testing.T) {
	assert.True(t, IsHeartbeat("*0000;"))
	assert.False(t, IsHeartbeat("*8D4B969699155600E87406F5B69F;"))
	assert.False(t, IsHeartbeat(""))
}
