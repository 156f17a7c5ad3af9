package ident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	for _, n := range []int{1, 8, 16, 32} {
		tok := New(n)
		assert.Len(t, tok, n)
		for _, r := range tok {
			assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
		}
	}
}

func TestNewSecureLengthAndAlphabet(t *testing.T) {
	tok := NewSecure(32)
	assert.Len(t, tok, 32)
	for _, r := range tok {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestNewNotConstant(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[New(16)] = true
	}
	// 50 independent 16-char draws colliding down to a handful would mean a
	// broken source.
	assert.Greater(t, len(seen), 45)
}
