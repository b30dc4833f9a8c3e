package contenthash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reference hashes data block by block without streaming.
func reference(data []byte) string {
	var sums []byte

	for len(data) > 0 {
		n := min(len(data), chunkSize)
		s := sha256.Sum256(data[:n])
		sums = append(sums, s[:]...)
		data = data[n:]
	}

	total := sha256.Sum256(sums)

	return hex.EncodeToString(total[:])
}

func TestKnownVectors(t *testing.T) {
	// Empty input hashes an empty list of block digests.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))

	inner := sha256.Sum256([]byte("hello"))
	outer := sha256.Sum256(inner[:])
	assert.Equal(t, hex.EncodeToString(outer[:]), Sum([]byte("hello")))
}

func TestBlockBoundaries(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"one byte short of a block", chunkSize - 1},
		{"exactly one block", chunkSize},
		{"one byte into second block", chunkSize + 1},
		{"two and a half blocks", chunkSize*2 + chunkSize/2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xA5, 0x01, 0x7F}, tc.size/3+1)[:tc.size]

			assert.Equal(t, reference(data), Sum(data))
		})
	}
}

func TestIncrementalWrite(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), chunkSize/8) // two blocks

	h := New()
	for chunk := range slicesChunk(data, 1<<20-7) {
		n, err := h.Write(chunk)
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}

	assert.Equal(t, reference(data), hex.EncodeToString(h.Sum(nil)))
}

func slicesChunk(data []byte, n int) func(func([]byte) bool) {
	return func(yield func([]byte) bool) {
		for len(data) > 0 {
			k := min(n, len(data))
			if !yield(data[:k]) {
				return
			}

			data = data[k:]
		}
	}
}

func TestSumIsNonDestructive(t *testing.T) {
	h := New()
	h.Write([]byte("hello "))

	first := h.Sum(nil)
	assert.Equal(t, first, h.Sum(nil))

	h.Write([]byte("world"))
	assert.Equal(t, Sum([]byte("hello world")), hex.EncodeToString(h.Sum(nil)))
}

func TestSumAppendsToSlice(t *testing.T) {
	h := New()
	out := h.Sum([]byte{0xFF})

	require.Len(t, out, 1+Size)
	assert.Equal(t, byte(0xFF), out[0])
}

func TestReset(t *testing.T) {
	h := New()
	h.Write(bytes.Repeat([]byte{1}, chunkSize+10))
	h.Reset()
	h.Write([]byte("hello"))

	assert.Equal(t, Sum([]byte("hello")), hex.EncodeToString(h.Sum(nil)))
	assert.Equal(t, Size, h.Size())
	assert.Equal(t, BlockSize, h.BlockSize())
}

func TestReader(t *testing.T) {
	got, err := Reader(bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, Sum([]byte("hello")), got)

	_, err = Reader(iotest.ErrReader(errors.New("boom")))
	require.Error(t, err)
}
