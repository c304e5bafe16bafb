// Package chainhash provides the 32-byte double-SHA256 hash type used
// throughout consensus: transaction ids, block hashes, and merkle nodes.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"github.com/pkg/errors"
)

// HashSize is the number of bytes in a hash.
const HashSize = 32

// Hash is a 32-byte double-SHA256 hash, stored and compared as a fixed-width
// byte array rather than a slice so it can be used as a map key.
type Hash [HashSize]byte

// ZeroHash is the hash with all zero bytes, used for the null prevout of a
// coinbase input.
var ZeroHash = Hash{}

// String returns the hash as a reversed (big-endian display, little-endian
// storage) hex string, matching the convention used for block and
// transaction ids across the Bitcoin-derived family.
func (h Hash) String() string {
	var reversed Hash
	for i := 0; i < HashSize/2; i++ {
		reversed[i], reversed[HashSize-1-i] = h[HashSize-1-i], h[i]
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a copy of the hash as a byte slice.
func (h Hash) CloneBytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// IsEqual returns whether h and target are the same hash. Two nil hashes
// are equal; a nil and a non-nil hash are not.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// SetBytes copies buf into the hash. buf must be exactly HashSize bytes.
func (h *Hash) SetBytes(buf []byte) error {
	if len(buf) != HashSize {
		return errors.Errorf("invalid hash length of %d, want %d", len(buf), HashSize)
	}
	copy(h[:], buf)
	return nil
}

// NewHash returns a Hash built from buf, which must be exactly HashSize
// bytes.
func NewHash(buf []byte) (*Hash, error) {
	var h Hash
	if err := h.SetBytes(buf); err != nil {
		return nil, err
	}
	return &h, nil
}

// HashB returns the single SHA256 hash of the given byte slice.
func HashB(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// HashH returns the single SHA256 hash of the given byte slice as a Hash.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleHashB returns the double SHA256 hash (SHA256(SHA256(b))) of the
// given byte slice. This is consensus's `Hash()` primitive: every block and
// transaction id, and the PoS kernel hash, are computed this way.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH returns DoubleHashB as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// HashWriter incrementally double-hashes data written to it without
// concatenating the data into a single buffer first. Used to build the PoS
// kernel hash input (nTime || prevout.hash || prevout.n [|| H10]) without an
// intermediate allocation.
type HashWriter struct {
	inner hash.Hash
}

// NewHashWriter returns a HashWriter ready to accept writes.
func NewHashWriter() *HashWriter {
	return &HashWriter{inner: sha256.New()}
}

// Write implements io.Writer. It never returns an error.
func (w *HashWriter) Write(p []byte) (int, error) {
	return w.inner.Write(p)
}

// Finalize returns the double-SHA256 hash of everything written so far.
func (w *HashWriter) Finalize() Hash {
	first := w.inner.Sum(nil)
	return Hash(sha256.Sum256(first))
}
