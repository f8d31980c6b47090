// Package memory reads typed values out of the memory of another running
// process through a Provider.
//
// A Memory starts unbound. Init polls the provider until it yields a Handle,
// after which ReadScalar and ReadString delegate to the provider using that
// handle. The handle is acquired once and never replaced; when the target
// process goes away reads fail with a *ReadError and the caller decides
// whether to Close and build a new Memory.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding"

	"dolphinmem/pkg/logflags"
)

type Memory struct {
	provider Provider
	cfg      Config
	logger   logflags.Logger

	initMu sync.Mutex

	mu      sync.RWMutex
	handle  Handle
	closed  bool
	stats   AcquireStats
	done    chan struct{}
	closeMu sync.Once
}

// New returns an unbound Memory. It fails with ErrPlatformUnsupported when
// the provider cannot run on the host operating system.
func New(p Provider, opts ...Option) (*Memory, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := checkPlatform(p, cfg.goos); err != nil {
		return nil, err
	}

	if !cfg.DefaultWidth.Valid() {
		return nil, fmt.Errorf("default width: %w: %d", ErrInvalidByteSize, cfg.DefaultWidth)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logflags.MemoryLogger()
	}

	return &Memory{
		provider: p,
		cfg:      cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

func checkPlatform(p Provider, goos string) error {
	pc, ok := p.(PlatformChecker)
	if !ok {
		return nil
	}

	platforms := pc.SupportedPlatforms()
	for _, platform := range platforms {
		if platform == goos {
			return nil
		}
	}

	return fmt.Errorf("%w: %s (supported: %s)", ErrPlatformUnsupported, goos, strings.Join(platforms, ", "))
}

// Init binds the Memory to the target process, polling the provider once per
// PollInterval until an attempt succeeds. It returns immediately when a
// handle is already held.
//
// Failed attempts are logged and reported to the observer, never returned.
// Polling stops with an error only when ctx is done, when MaxAttempts is set
// and exhausted, or when the Memory is closed.
func (m *Memory) Init(ctx context.Context) (err error) {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.RLock()
	bound, closed := m.handle != nil, m.closed
	m.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if bound {
		return nil
	}

	m.setPolling(true, nil)
	defer func() { m.setPolling(false, err) }()

	m.logger.Debugf("polling for memory handle every %s", m.cfg.PollInterval)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire memory handle after %d attempts: %w", attempt-1, ctx.Err())
		case <-m.done:
			return ErrClosed
		case <-ticker.C:
		}

		h, acqErr := m.provider.Acquire()
		if acqErr == nil && h == nil {
			acqErr = errNilHandle
		}

		if acqErr != nil {
			lastErr = acqErr
			m.recordFailure(attempt, acqErr)

			if m.cfg.MaxAttempts > 0 && attempt >= m.cfg.MaxAttempts {
				return fmt.Errorf("%w after %d attempts: %w", ErrAcquireExhausted, attempt, lastErr)
			}
			continue
		}

		return m.bind(attempt, h)
	}
}

func (m *Memory) setPolling(polling bool, stopErr error) {
	m.mu.Lock()
	m.stats.Polling = polling
	m.stats.StopErr = stopErr
	m.mu.Unlock()
}

func (m *Memory) recordFailure(attempt int, err error) {
	now := time.Now()

	m.mu.Lock()
	m.stats.Attempts++
	m.stats.Failures++
	m.stats.LastError = err
	m.mu.Unlock()

	m.logger.Warnf("acquire attempt %d failed: %v", attempt, err)
	m.notify(AttemptEvent{Attempt: attempt, Err: err, At: now})
}

func (m *Memory) bind(attempt int, h Handle) error {
	now := time.Now()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if err := h.Close(); err != nil {
			m.logger.Errorf("release handle acquired after close: %v", err)
		}
		return ErrClosed
	}
	m.handle = h
	m.stats.Attempts++
	m.stats.Bound = true
	m.stats.BoundAt = now
	m.mu.Unlock()

	m.logger.Infof("memory handle acquired after %d attempts", attempt)
	m.notify(AttemptEvent{Attempt: attempt, Bound: true, At: now})
	return nil
}

func (m *Memory) notify(ev AttemptEvent) {
	if m.cfg.Observer != nil {
		m.cfg.Observer(ev)
	}
}

// Stats returns the acquisition state.
func (m *Memory) Stats() AcquireStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Bound reports whether a handle is held.
func (m *Memory) Bound() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle != nil
}

// Close stops any running Init and releases the handle.
func (m *Memory) Close() error {
	m.closeMu.Do(func() { close(m.done) })

	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.closed = true
	m.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}

func (m *Memory) acquired() (Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.handle == nil {
		return nil, ErrNotInitialized
	}
	return m.handle, nil
}

// ReadScalar reads size bytes at addr and returns the provider's value
// unmodified.
func (m *Memory) ReadScalar(addr uint32, size ByteSize) (uint32, error) {
	if !size.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidByteSize, size)
	}

	h, err := m.acquired()
	if err != nil {
		return 0, err
	}

	return m.read(h, addr, size)
}

// Read is ReadScalar with the configured default width.
func (m *Memory) Read(addr uint32) (uint32, error) {
	return m.ReadScalar(addr, m.cfg.DefaultWidth)
}

func (m *Memory) read(h Handle, addr uint32, size ByteSize) (uint32, error) {
	v, err := m.provider.Read(h, addr, size)
	if err != nil {
		return 0, &ReadError{Addr: addr, Size: size, Err: err}
	}
	return v, nil
}

// ReadBytes reads n bytes one at a time in ascending address order. The
// first failed read aborts the rest.
func (m *Memory) ReadBytes(addr uint32, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if uint64(addr)+uint64(n) > 1<<32 {
		return nil, fmt.Errorf("%w: %d bytes at %#08x passes the end of the address space", ErrInvalidLength, n, addr)
	}

	h, err := m.acquired()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	for i := range buf {
		v, err := m.read(h, addr+uint32(i), U8)
		if err != nil {
			return nil, err
		}
		buf[i] = byte(v)
	}

	return buf, nil
}

// ReadString reads a fixed-length string of n bytes at addr, decoding each
// byte as one code point. It is not NUL terminated.
func (m *Memory) ReadString(addr uint32, n int) (string, error) {
	buf, err := m.ReadBytes(addr, n)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(n)
	for _, b := range buf {
		sb.WriteRune(rune(b))
	}
	return sb.String(), nil
}

// ReadStringEncoded reads n bytes at addr, decodes them with enc and cuts
// the result at the first NUL.
func (m *Memory) ReadStringEncoded(addr uint32, n int, enc encoding.Encoding) (string, error) {
	buf, err := m.ReadBytes(addr, n)
	if err != nil {
		return "", err
	}

	out, err := enc.NewDecoder().Bytes(buf)
	if err != nil {
		return "", fmt.Errorf("decode %d bytes at %#08x: %w", n, addr, err)
	}

	s := string(out)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s, nil
}

// DefaultWidth returns the width used by Read.
func (m *Memory) DefaultWidth() ByteSize {
	return m.cfg.DefaultWidth
}
