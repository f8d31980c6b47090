package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in       string
		expected ByteSize
	}{
		{"u8", U8},
		{"U16", U16},
		{"u32", U32},
		{"1", U8},
		{"2", U16},
		{"4", U32},
		{"8", U8},
		{"16", U16},
		{"32", U32},
		{" u16 ", U16},
	}

	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.expected, got, tt.in)
	}
}

func TestParseByteSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "3", "u64", "64", "byte"} {
		_, err := ParseByteSize(in)
		assert.ErrorIs(t, err, ErrInvalidByteSize, in)
	}
}

func TestByteSize(t *testing.T) {
	assert.True(t, U8.Valid())
	assert.False(t, ByteSize(0).Valid())
	assert.False(t, ByteSize(8).Valid())
	assert.Equal(t, "u16", U16.String())
	assert.Equal(t, "ByteSize(3)", ByteSize(3).String())
}
