// Package keys builds memo cache keys for codec results.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// bump when the cached value layout changes
const version = "v1"

const maxTokenTextLen = 32

// Encode keys an encode result by codec, precision and the exact float inputs.
func Encode(codecName string, lat, lon float64, precision int) string {
	return fmt.Sprintf("gcg:%s:enc:%s:%d:%s,%s",
		version,
		sanitize(codecName),
		precision,
		strconv.FormatFloat(lat, 'g', -1, 64),
		strconv.FormatFloat(lon, 'g', -1, 64),
	)
}

// Decode keys a decode result by codec and token. The token text is
// sanitized and truncated for readability; the hash keeps keys distinct.
func Decode(codecName, token string) string {
	text := sanitize(token)
	if len(text) > maxTokenTextLen {
		text = text[:maxTokenTextLen]
	}
	return fmt.Sprintf("gcg:%s:dec:%s:%s:t=%016x", version, sanitize(codecName), text, xxhash.Sum64String(token))
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
