package memory

import (
	"fmt"
	"strings"
)

// ByteSize is the number of bytes a scalar read consumes.
type ByteSize uint8

const (
	U8  ByteSize = 1
	U16 ByteSize = 2
	U32 ByteSize = 4
)

func (b ByteSize) Valid() bool {
	switch b {
	case U8, U16, U32:
		return true
	}
	return false
}

func (b ByteSize) String() string {
	switch b {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	}
	return fmt.Sprintf("ByteSize(%d)", uint8(b))
}

// ParseByteSize accepts the width names (u8, u16, u32), byte counts (1, 2, 4)
// and bit counts (8, 16, 32).
func ParseByteSize(s string) (ByteSize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "u8", "1", "8":
		return U8, nil
	case "u16", "2", "16":
		return U16, nil
	case "u32", "4", "32":
		return U32, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidByteSize, s)
}
