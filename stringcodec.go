package mxpack

import "unicode/utf8"

// StringCodec decodes and encodes MessagePack string payloads. The decoder
// validates UTF-8; the default policy is strict rejection of malformed
// sequences (spec §4.7), reported as InvalidUTF8Error.
type StringCodec interface {
	// Decode validates and converts a UTF-8 byte payload to text.
	Decode(b []byte) (string, error)
	// EncodedLen reports the exact UTF-8 byte length s will occupy, so the
	// caller can size a header before emission.
	EncodedLen(s string) int
	// Encode writes the UTF-8 bytes of s into dst, which must be at least
	// EncodedLen(s) bytes, and returns the number of bytes written.
	Encode(dst []byte, s string) int
}

// strictUTF8Codec is the default StringCodec: malformed sequences fail
// rather than being replaced.
type strictUTF8Codec struct{}

// DefaultStringCodec validates and rejects malformed UTF-8.
var DefaultStringCodec StringCodec = strictUTF8Codec{}

func (strictUTF8Codec) Decode(b []byte) (string, error) {
	if off := firstInvalidUTF8(b); off >= 0 {
		return "", &InvalidUTF8Error{Offset: off}
	}
	return string(b), nil
}

func (strictUTF8Codec) EncodedLen(s string) int { return len(s) }

func (strictUTF8Codec) Encode(dst []byte, s string) int { return copy(dst, s) }

// firstInvalidUTF8 returns the byte offset of the first invalid UTF-8
// sequence in b, or -1 if b is entirely valid.
func firstInvalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

// IdentifierCodec is an optimized path for short, often-repeated strings
// (map keys, struct field names): semantically equivalent to StringCodec
// but free to special-case pure-ASCII content up to identifierFastPathLen
// bytes (spec §4.6).
type IdentifierCodec interface {
	StringCodec
}

const identifierFastPathLen = 20

// DefaultIdentifierCodec shares the strict UTF-8 codec; the "fast path" is
// applied by the Writer itself (it is a dispatch decision, not a different
// encoding), so no separate implementation type is needed here.
var DefaultIdentifierCodec IdentifierCodec = strictUTF8Codec{}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
