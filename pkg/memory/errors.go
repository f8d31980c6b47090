package memory

import (
	"errors"
	"fmt"
)

var (
	ErrPlatformUnsupported = errors.New("platform not supported by memory provider")
	ErrNotInitialized      = errors.New("memory not initialized")
	ErrClosed              = errors.New("memory closed")
	ErrAcquireExhausted    = errors.New("memory acquisition attempts exhausted")
	ErrInvalidByteSize     = errors.New("invalid byte size")
	ErrInvalidLength       = errors.New("invalid read length")

	errNilHandle = errors.New("provider returned no handle")
)

// ReadError is returned when the provider could not satisfy a read.
type ReadError struct {
	Addr uint32
	Size ByteSize
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s at %#08x: %v", e.Size, e.Addr, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
