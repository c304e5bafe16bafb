package random

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Uint64 returns a cryptographically random uint64 value. It is used to seed
// the coinbase extra-nonce and other values that must be unpredictable but
// need not be consensus-critical.
func Uint64() (uint64, error) {
	var b [8]byte
	_, err := io.ReadFull(rand.Reader, b[:])
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
