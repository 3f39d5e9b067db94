// Package hasher implements the incremental hash accumulator that cache keys
// are built from. A Hash absorbs byte material, typed-field delimiters and
// integers in order; the digest depends on both the content and the framing,
// so differently structured inputs cannot collide by concatenation.
//
// A Hash is owned by its creator and is not safe for concurrent use.
package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// delimFrame precedes every delimiter label. Labels are short ASCII strings,
// so the frame byte cannot occur inside one, and raw content is only ever
// absorbed as unframed byte runs.
const delimFrame = 0xc0

// Hash is an incremental hash accumulator.
type Hash struct {
	d hash.Hash
}

// New returns an empty accumulator.
func New() *Hash {
	d, err := blake2b.New256(nil)
	if err != nil {
		// Only reachable with a key, and we never pass one.
		panic(err)
	}
	return &Hash{d: d}
}

// Bytes absorbs a byte slice.
func (h *Hash) Bytes(p []byte) {
	h.d.Write(p)
}

// String absorbs a string.
func (h *Hash) String(s string) {
	h.d.Write([]byte(s))
}

// Write absorbs p and never fails; it exists so a Hash can sit on the
// receiving end of io.Copy.
func (h *Hash) Write(p []byte) (int, error) {
	h.d.Write(p)
	return len(p), nil
}

// Delimiter absorbs a field label with framing that keeps
// Bytes(a); Delimiter(x); Bytes(b) distinguishable from Bytes(a||b).
func (h *Hash) Delimiter(label string) {
	h.d.Write([]byte{delimFrame})
	h.d.Write([]byte(label))
	h.d.Write([]byte{0})
}

// Int absorbs an integer in fixed-width little-endian form.
func (h *Hash) Int(i int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(i))
	h.d.Write(buf[:])
}

// Sum returns the digest of everything absorbed so far. The accumulator
// remains usable.
func (h *Hash) Sum() []byte {
	return h.d.Sum(nil)
}

// HexDigest returns Sum as a lowercase hex string.
func (h *Hash) HexDigest() string {
	return hex.EncodeToString(h.Sum())
}

// FromInt hashes a single integer, for callers that need a small well-mixed
// value rather than an accumulator.
func FromInt(i int64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(i))
	return xxhash.Sum64(buf[:])
}
