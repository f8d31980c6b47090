// Package prowler is the memory provider for a running Dolphin emulator. It
// finds the emulator process, locates the mapping that backs the emulated
// GameCube/Wii main RAM and reads guest addresses out of it.
package prowler

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"dolphinmem/pkg/logflags"
	"dolphinmem/pkg/memory"
)

const (
	// RAMStart is the first guest address of main RAM.
	RAMStart uint32 = 0x80000000
	// RAMEnd is the end of the readable guest range (exclusive).
	RAMEnd uint32 = 0x81800000
	// RAMSize is the size of one emulated RAM view inside the host process.
	RAMSize uint64 = 0x2000000
)

var (
	ErrProcessNotFound   = errors.New("dolphin process not found")
	ErrRegionNotFound    = errors.New("emulated ram region not found")
	ErrAddressOutOfRange = errors.New("address outside emulated ram")
	ErrProcessExited     = errors.New("dolphin process exited")
	ErrShortRead         = errors.New("short read")
	ErrHandleClosed      = errors.New("handle closed")
	ErrForeignHandle     = errors.New("handle not created by prowler")
)

type Options struct {
	// Pid pins the target process. Zero discovers it by name.
	Pid int
	// ProcessNames are executable name prefixes considered to be Dolphin.
	ProcessNames []string
}

func DefaultOptions() Options {
	return Options{ProcessNames: defaultProcessNames()}
}

func defaultProcessNames() []string {
	if runtime.GOOS == "windows" {
		return []string{
			"Dolphin.exe",
			"Slippi Dolphin.exe",
			"DolphinWx.exe",
			"DolphinQt2.exe",
			"Citrus Dolphin.exe",
		}
	}
	return []string{
		"dolphin-emu",
		"Slippi_Online",
		"Slippi Dolphin",
	}
}

type Prowler struct {
	opts   Options
	logger logflags.Logger
	attach func(pid int) (*handle, error)
}

func New(opts Options) *Prowler {
	if len(opts.ProcessNames) == 0 {
		opts.ProcessNames = defaultProcessNames()
	}

	return &Prowler{
		opts:   opts,
		logger: logflags.ProwlerLogger(),
		attach: attach,
	}
}

// NewMemory returns an unbound memory.Memory backed by a Prowler.
func NewMemory(opts Options, memOpts ...memory.Option) (*memory.Memory, error) {
	return memory.New(New(opts), memOpts...)
}

func (p *Prowler) SupportedPlatforms() []string {
	return []string{"linux", "windows"}
}

func (p *Prowler) Acquire() (memory.Handle, error) {
	pid := p.opts.Pid
	if pid == 0 {
		found, err := findProcess(p.opts.ProcessNames)
		if err != nil {
			return nil, err
		}
		pid = found
	}

	h, err := p.attach(pid)
	if err != nil {
		return nil, fmt.Errorf("attach to pid %d: %w", pid, err)
	}

	p.logger.Infof("attached to pid %d, ram at %#x (%#x bytes)", pid, h.base, h.size)
	return h, nil
}

func (p *Prowler) Read(mh memory.Handle, addr uint32, size memory.ByteSize) (uint32, error) {
	h, ok := mh.(*handle)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrForeignHandle, mh)
	}

	if !size.Valid() {
		return 0, fmt.Errorf("%w: %d", memory.ErrInvalidByteSize, size)
	}

	buf := make([]byte, size)
	if err := h.readAt(buf, addr); err != nil {
		return 0, err
	}

	return decode(buf), nil
}

// decode interprets guest bytes, which are big endian.
func decode(buf []byte) uint32 {
	switch len(buf) {
	case 1:
		return uint32(buf[0])
	case 2:
		return uint32(binary.BigEndian.Uint16(buf))
	default:
		return binary.BigEndian.Uint32(buf)
	}
}

// memoryReader reads host memory of the attached process. The address is
// a uint64 so that it can address all of 64-bit memory.
type memoryReader interface {
	ReadMemory(buf []byte, addr uint64) (n int, err error)
}

// handle is an attached Dolphin process with the location of its RAM view.
type handle struct {
	pid    int
	base   uint64
	size   uint64
	reader memoryReader
	closer func() error

	mu     sync.RWMutex
	closed bool
}

// translate maps a guest address to a host address inside the RAM view.
func (h *handle) translate(addr uint32, n int) (uint64, error) {
	if addr < RAMStart || addr >= RAMEnd {
		return 0, fmt.Errorf("%w: %#08x", ErrAddressOutOfRange, addr)
	}

	offset := uint64(addr - RAMStart)
	if offset+uint64(n) > h.size || addr+uint32(n)-1 >= RAMEnd {
		return 0, fmt.Errorf("%w: %#08x+%d", ErrAddressOutOfRange, addr, n)
	}

	return h.base + offset, nil
}

func (h *handle) readAt(buf []byte, addr uint32) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHandleClosed
	}

	hostAddr, err := h.translate(addr, len(buf))
	if err != nil {
		return err
	}

	n, err := h.reader.ReadMemory(buf, hostAddr)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("%w: %d of %d bytes at %#08x", ErrShortRead, n, len(buf), addr)
	}

	return nil
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.closer != nil {
		return h.closer()
	}
	return nil
}
