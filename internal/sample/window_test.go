package sample

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_TakeReadyClearsFlag(t *testing.T) {
	w := NewWindow(8)
	dst := make([]byte, w.Len())

	_, ok := w.TakeReady(dst)
	assert.False(t, ok, "no data filled yet")

	w.Fill([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	n, ok := w.TakeReady(dst)
	require.True(t, ok)
	assert.Equal(t, w.Len(), n)

	_, ok = w.TakeReady(dst)
	assert.False(t, ok, "ready flag must be cleared after a successful take")
}

func TestWindow_CarriesTailForward(t *testing.T) {
	w := NewWindow(4)
	carry := w.Len() - 4

	first := bytes.Repeat([]byte{0xAA}, 4)
	w.Fill(first)
	dst := make([]byte, w.Len())
	_, _ = w.TakeReady(dst)

	second := bytes.Repeat([]byte{0xBB}, 4)
	w.Fill(second)
	n, ok := w.TakeReady(dst)
	require.True(t, ok)

	assert.Equal(t, first, dst[carry-4:carry], "the previous fill's data must be carried forward as the new tail")
	assert.Equal(t, second, dst[carry:n])
}

func TestWindow_ShortReadZerosRemainder(t *testing.T) {
	w := NewWindow(8)
	w.Fill([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	dst := make([]byte, w.Len())
	w.TakeReady(dst)

	w.Fill([]byte{9, 9, 9})
	n, ok := w.TakeReady(dst)
	require.True(t, ok)

	carry := w.Len() - 8
	assert.Equal(t, []byte{9, 9, 9}, dst[carry:carry+3])
	for _, b := range dst[carry+3 : n] {
		assert.Equal(t, byte(0), b, "remainder after a short fill must be zeroed")
	}
}

func TestFileSource_ReplaysWithoutLoop(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "iq-*.bin")
	require.NoError(t, err)
	data := bytes.Repeat([]byte{0x7F}, 32)
	_, err = tmp.Write(data)
	require.NoError(t, err)
	tmp.Close()

	w := NewWindow(16)
	src := NewFileSource(tmp.Name(), false, nil)

	err = src.Run(context.Background(), w)
	require.NoError(t, err)

	dst := make([]byte, w.Len())
	n, ok := w.TakeReady(dst)
	require.True(t, ok)
	assert.Equal(t, byte(0x7F), dst[n-1])
}

func TestFileSource_LoopsUntilCancelled(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "iq-*.bin")
	require.NoError(t, err)
	_, err = tmp.Write(bytes.Repeat([]byte{0x11}, 16))
	require.NoError(t, err)
	tmp.Close()

	w := NewWindow(16)
	src := NewFileSource(tmp.Name(), true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, w) }()

	dst := make([]byte, w.Len())
	for i := 0; i < 3; i++ {
		for {
			if _, ok := w.TakeReady(dst); ok {
				break
			}
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("file source did not stop after cancel")
	}
}
