package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePlainWord(t *testing.T) {
	assert.Equal(t, "**** you", Sanitize("fuck you"))
}

func TestSanitizePreservesCasingOutsideRedaction(t *testing.T) {
	assert.Equal(t, "Hey ****, Hey", Sanitize("Hey FuCk, Hey"))
}

func TestSanitizeLeetspeak(t *testing.T) {
	assert.Equal(t, "****", Sanitize("fuck"))
	assert.Equal(t, "**** that", Sanitize("5hit that"))
	assert.Equal(t, "fvck", Sanitize("fvck"))
}

func TestSanitizeCleanTextUntouched(t *testing.T) {
	in := "good luck, have fun!"
	assert.Equal(t, in, Sanitize(in))
}

func TestSanitizeLengthInvariant(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		"fuck",
		"sh1t happens",
		"b1tch and 5hit and FUCK",
		"a55hole",
		"no profanity at all here",
	}
	for _, in := range inputs {
		assert.Len(t, Sanitize(in), len(in), "input %q", in)
	}
}

func TestSanitizeDigitSubstitutions(t *testing.T) {
	assert.Equal(t, "****", Sanitize("sh1t"))
	assert.Equal(t, "****", Sanitize("5h1t"))
	assert.Equal(t, "*****", Sanitize("b1tch"))
}

func TestSanitizeMultipleOccurrences(t *testing.T) {
	assert.Equal(t, "**** this ****", Sanitize("shit this SH1T"))
}
