// Package chat provides the profanity sanitizer applied to every message
// before it is relayed to a game's members.
package chat

import "strings"

// leetMap normalizes common digit/symbol substitutions before the blocklist
// scan. "8" expands to "ate", so the working copy may be longer than the
// original; offsets are tracked so redaction still lands on the right spans.
var leetMap = map[byte]string{
	'0': "o",
	'1': "i",
	'3': "e",
	'4': "a",
	'5': "s",
	'6': "g",
	'7': "t",
	'8': "ate",
	'9': "g",
}

var blocklist = []string{
	"asshole",
	"bastard",
	"bitch",
	"cunt",
	"dick",
	"fuck",
	"motherfucker",
	"nigger",
	"prick",
	"pussy",
	"shit",
	"slut",
	"whore",
}

// Sanitize redacts blocklisted words from text, returning a string of the
// same length as the input. The scan runs over a leetspeak-normalized,
// lowercased working copy; matches are starred out in the original by
// position, so casing and length outside redacted spans are untouched.
func Sanitize(text string) string {
	normalized, origIdx := normalize(text)

	out := []byte(text)
	for _, word := range blocklist {
		for from := 0; ; {
			i := strings.Index(normalized[from:], word)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(word)
			for j := origIdx[start]; j <= origIdx[end-1]; j++ {
				out[j] = '*'
			}
			from = start + 1
		}
	}
	return string(out)
}

// normalize lowercases text and applies leetMap, returning the working copy
// plus a per-byte mapping back to the index in the original string.
func normalize(text string) (string, []int) {
	var sb strings.Builder
	sb.Grow(len(text))
	idx := make([]int, 0, len(text))

	for i := 0; i < len(text); i++ {
		c := text[i]
		if sub, ok := leetMap[c]; ok {
			sb.WriteString(sub)
			for range sub {
				idx = append(idx, i)
			}
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		sb.WriteByte(c)
		idx = append(idx, i)
	}
	return sb.String(), idx
}
