package userauth

import (
	"strings"
	"unicode/utf8"
)

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes s for use inside a query value.
// Only ALPHA, DIGIT and -_.!~*'() are left alone. Bytes that are not
// part of a valid UTF-8 sequence (for example a lone surrogate) are
// copied as they are, the function never fails.
func EncodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if unreserved(c) {
				b.WriteByte(c)
			} else {
				escape(&b, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteByte(c)
			i++
			continue
		}
		for j := 0; j < size; j++ {
			escape(&b, s[i+j])
		}
		i += size
	}
	return b.String()
}

func escape(b *strings.Builder, c byte) {
	b.WriteByte('%')
	b.WriteByte(upperhex[c>>4])
	b.WriteByte(upperhex[c&15])
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
