// Package contenthash implements the Dropbox content hash used to verify
// file transfers.
//
// The input is split into 4 MiB blocks. Each block is hashed with SHA-256,
// the block digests are concatenated in order, and the result is hashed
// again with SHA-256. The hex encoding of that digest is what the Dropbox
// API reports as content_hash.
//
// Reference: https://www.dropbox.com/developers/reference/content-hash
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"slices"
)

const (
	// Size is the length, in bytes, of a content hash digest.
	Size = sha256.Size

	// BlockSize is the preferred input block size for the hash, in bytes.
	BlockSize = sha256.BlockSize

	// chunkSize is the span of input covered by one block digest.
	chunkSize = 4 << 20
)

// digest is the internal state of a content hash computation.
type digest struct {
	blockSums []byte    // concatenated digests of completed chunks
	block     hash.Hash // running digest of the current chunk
	blockLen  int
}

// New returns a new hash.Hash computing the Dropbox content hash.
func New() hash.Hash {
	return &digest{block: sha256.New()}
}

// Write absorbs more data into the running hash.
// It always returns len(p), nil.
func (d *digest) Write(p []byte) (int, error) {
	n := len(p)

	for len(p) > 0 {
		take := min(len(p), chunkSize-d.blockLen)

		d.block.Write(p[:take])
		d.blockLen += take
		p = p[take:]

		if d.blockLen == chunkSize {
			d.blockSums = d.block.Sum(d.blockSums)
			d.block.Reset()
			d.blockLen = 0
		}
	}

	return n, nil
}

// Sum appends the current hash to b and returns the resulting slice.
// It does not change the underlying hash state.
func (d *digest) Sum(b []byte) []byte {
	sums := slices.Clone(d.blockSums)
	if d.blockLen > 0 {
		sums = d.block.Sum(sums)
	}

	total := sha256.Sum256(sums)

	return append(b, total[:]...)
}

// Reset resets the hash to its initial state.
func (d *digest) Reset() {
	d.blockSums = d.blockSums[:0]
	d.block.Reset()
	d.blockLen = 0
}

// Size returns the number of bytes Sum will return.
func (d *digest) Size() int {
	return Size
}

// BlockSize returns the hash's underlying block size.
func (d *digest) BlockSize() int {
	return BlockSize
}

// Sum returns the hex-encoded content hash of data.
func Sum(data []byte) string {
	h := New()
	h.Write(data)

	return hex.EncodeToString(h.Sum(nil))
}

// Reader returns the hex-encoded content hash of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
