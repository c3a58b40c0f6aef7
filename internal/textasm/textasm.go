// Package textasm turns raw token bytes into text that is always valid UTF-8.
//
// Each call decodes its input independently: a multi-byte character whose
// bytes were split across two tokens is dropped from both halves rather than
// reassembled. Callers that need reassembly should accumulate raw bytes and
// decode once (batch generation does this).
package textasm

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Decode returns the valid UTF-8 text contained in b. A byte that does not
// begin a well-formed sequence (bad lead byte, missing or bad continuation
// bytes, overlong form, surrogate, or code point above U+10FFFF) is skipped
// and decoding resumes at the very next byte.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			b = b[1:]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}

// EncodeUTF16 transcodes s for hosts with UTF-16 strings. Code points above
// U+FFFF become surrogate pairs.
func EncodeUTF16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// DecodeUTF16 is the inverse of EncodeUTF16. Unpaired surrogates are dropped.
func DecodeUTF16(u []uint16) string {
	var sb strings.Builder
	sb.Grow(len(u))
	for i := 0; i < len(u); i++ {
		c := rune(u[i])
		if !utf16.IsSurrogate(c) {
			sb.WriteRune(c)
			continue
		}
		if i+1 < len(u) {
			if r := utf16.DecodeRune(c, rune(u[i+1])); r != utf8.RuneError {
				sb.WriteRune(r)
				i++
			}
		}
	}
	return sb.String()
}
