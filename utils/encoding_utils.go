package utils

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	e "dolphinmem/error"
)

const (
	EncodingLatin1   = "latin1"
	EncodingShiftJIS = "sjis"
)

// StringReader is the string surface of *memory.Memory.
type StringReader interface {
	ReadString(addr uint32, n int) (string, error)
	ReadStringEncoded(addr uint32, n int, enc encoding.Encoding) (string, error)
}

// LookupEncoding resolves an encoding name. Latin-1 maps to nil: every byte
// is its own code point and needs no decoder.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingLatin1, "iso-8859-1":
		return nil, nil
	case EncodingShiftJIS, "shift-jis", "shift_jis":
		return japanese.ShiftJIS, nil
	default:
		return nil, fmt.Errorf("%w: %q", e.UnknownEncoding, name)
	}
}

// ReadStringAs reads n bytes at addr and decodes them with the named
// encoding.
func ReadStringAs(r StringReader, addr uint32, n int, name string) (string, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return r.ReadString(addr, n)
	}
	return r.ReadStringEncoded(addr, n, enc)
}
