// Package ident generates the opaque alphanumeric tokens used for connection
// ids, game codes and one-time codes.
package ident

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// New returns a token of n characters drawn uniformly from the alphanumeric
// alphabet. Tokens are not guaranteed unique; callers that need uniqueness
// (game codes, connection ids) re-roll against their own registry.
func New(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// NewSecure is New backed by crypto/rand. Used for email verification and
// password recovery codes, where guessability matters.
func NewSecure(n int) string {
	b := make([]byte, n)
	for i := range b {
		var buf [8]byte
		if _, err := cryptorand.Read(buf[:]); err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// fall back to the weak source rather than refusing to issue.
			b[i] = alphabet[rand.IntN(len(alphabet))]
			continue
		}
		b[i] = alphabet[binary.BigEndian.Uint64(buf[:])%uint64(len(alphabet))]
	}
	return string(b)
}
