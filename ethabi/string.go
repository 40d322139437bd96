package ethabi

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// StringEncoding identifies the shape of a string return value.
type StringEncoding uint8

const (
	StringEmpty StringEncoding = iota
	StringDynamic
	StringFixedBytes32
	StringMalformed
)

func (e StringEncoding) String() string {
	switch e {
	case StringEmpty:
		return "empty"
	case StringDynamic:
		return "dynamic"
	case StringFixedBytes32:
		return "bytes32"
	case StringMalformed:
		return "malformed"
	}
	return fmt.Sprintf("StringEncoding(%d)", uint8(e))
}

// ClassifyString inspects a payload and reports how it encodes a string.
func ClassifyString(payload string) StringEncoding {
	data, err := DecodeHex(payload)
	if err != nil {
		return StringMalformed
	}
	enc, _ := classifyString(data)
	return enc
}

func classifyString(data []byte) (StringEncoding, []byte) {
	switch {
	case len(data) == 0:
		return StringEmpty, nil
	case len(data) == WordSize:
		raw := bytes.TrimRight(data, "\x00")
		if len(raw) == 0 {
			return StringEmpty, nil
		}
		return StringFixedBytes32, raw
	case len(data) >= 2*WordSize:
		raw, ok := dynamicBytes(data)
		if !ok {
			return StringMalformed, nil
		}
		if len(raw) == 0 {
			return StringEmpty, nil
		}
		return StringDynamic, raw
	}
	return StringMalformed, nil
}

// dynamicBytes follows the offset and length header of a dynamic bytes/string value.
func dynamicBytes(data []byte) ([]byte, bool) {
	offset, ok := wordUint64(wordAt(data, 0))
	if !ok {
		return nil, false
	}
	lengthWord, ok := sliceAt(data, offset, WordSize)
	if !ok {
		return nil, false
	}
	length, ok := wordUint64(lengthWord)
	if !ok {
		return nil, false
	}
	return sliceAt(data, offset+WordSize, length)
}

// DecodeStringRaw returns the undecoded bytes of a string return value.
// A malformed payload yields ErrMalformed; an empty one yields no bytes and no error.
func DecodeStringRaw(payload string) ([]byte, StringEncoding, error) {
	data, err := DecodeHex(payload)
	if err != nil {
		return nil, StringMalformed, err
	}
	enc, raw := classifyString(data)
	if enc == StringMalformed {
		return nil, enc, fmt.Errorf("%w: unrecognised string encoding (%d bytes)", ErrMalformed, len(data))
	}
	return raw, enc, nil
}

// DecodeString decodes a dynamic string or bytes32 return value into
// printable ASCII.
func DecodeString(payload string) (string, StringEncoding, error) {
	raw, enc, err := DecodeStringRaw(payload)
	if err != nil {
		return "", enc, err
	}
	return SanitizeString(raw), enc, nil
}

var asciiFilter = runes.Remove(runes.Predicate(func(r rune) bool {
	return r >= utf8.RuneSelf || unicode.IsControl(r)
}))

// SanitizeString drops invalid UTF-8, non-ASCII glyphs and control characters
// and trims surrounding whitespace.
func SanitizeString(raw []byte) string {
	s := string(raw)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	filtered, _, err := transform.String(asciiFilter, s)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(filtered)
}
