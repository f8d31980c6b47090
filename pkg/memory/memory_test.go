package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/japanese"
)

type readCall struct {
	addr uint32
	size ByteSize
}

type fakeHandle struct {
	mu     sync.Mutex
	closed int
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	return nil
}

func (h *fakeHandle) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// fakeProvider fails the first failures acquisitions, then hands out handle.
// Reads come from data, little endian, and fail at addresses in failAt.
type fakeProvider struct {
	mu        sync.Mutex
	failures  int
	acquires  int
	handle    *fakeHandle
	data      map[uint32]byte
	failAt    map[uint32]bool
	reads     []readCall
	platforms []string
}

func newFakeProvider(failures int) *fakeProvider {
	return &fakeProvider{
		failures: failures,
		handle:   &fakeHandle{},
		data:     make(map[uint32]byte),
		failAt:   make(map[uint32]bool),
	}
}

var errNotRunning = errors.New("target process not running")

func (p *fakeProvider) Acquire() (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.acquires++
	if p.acquires <= p.failures {
		return nil, errNotRunning
	}
	return p.handle, nil
}

func (p *fakeProvider) Read(h Handle, addr uint32, size ByteSize) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reads = append(p.reads, readCall{addr: addr, size: size})
	if h != p.handle {
		return 0, errors.New("foreign handle")
	}
	if p.failAt[addr] {
		return 0, errors.New("address out of range")
	}

	var v uint32
	for i := 0; i < int(size); i++ {
		v |= uint32(p.data[addr+uint32(i)]) << (8 * i)
	}
	return v, nil
}

func (p *fakeProvider) SupportedPlatforms() []string {
	return p.platforms
}

func (p *fakeProvider) acquireCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquires
}

func (p *fakeProvider) readCalls() []readCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]readCall(nil), p.reads...)
}

func (p *fakeProvider) set(addr uint32, bs ...byte) {
	for i, b := range bs {
		p.data[addr+uint32(i)] = b
	}
}

// plainProvider does not implement PlatformChecker.
type plainProvider struct {
	inner *fakeProvider
}

func (p plainProvider) Acquire() (Handle, error) { return p.inner.Acquire() }

func (p plainProvider) Read(h Handle, addr uint32, size ByteSize) (uint32, error) {
	return p.inner.Read(h, addr, size)
}

func newTestMemory(t *testing.T, p Provider, opts ...Option) (*Memory, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{
		WithPollInterval(time.Millisecond),
		WithLogger(zap.New(core).Sugar()),
		WithGOOS("linux"),
	}, opts...)

	m, err := New(p, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, logs
}

func boundMemory(t *testing.T, p *fakeProvider) *Memory {
	t.Helper()

	m, _ := newTestMemory(t, p)
	require.NoError(t, m.Init(context.Background()))
	return m
}

func TestNew_UnsupportedPlatform(t *testing.T) {
	p := newFakeProvider(0)
	p.platforms = []string{"windows"}

	m, err := New(p, WithGOOS("darwin"), WithPollInterval(time.Millisecond))
	require.ErrorIs(t, err, ErrPlatformUnsupported)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "darwin")

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 0, p.acquireCount(), "no polling may start")
}

func TestNew_SupportedPlatform(t *testing.T) {
	p := newFakeProvider(0)
	p.platforms = []string{"linux", "windows"}

	_, err := New(p, WithGOOS("windows"))
	require.NoError(t, err)
}

func TestNew_ProviderWithoutPlatformCheck(t *testing.T) {
	_, err := New(plainProvider{newFakeProvider(0)}, WithGOOS("plan9"))
	require.NoError(t, err)
}

func TestNew_InvalidDefaultWidth(t *testing.T) {
	_, err := New(newFakeProvider(0), WithGOOS("linux"), WithDefaultWidth(3))
	require.ErrorIs(t, err, ErrInvalidByteSize)
}

func TestInit_RetriesUntilAcquired(t *testing.T) {
	p := newFakeProvider(2)

	var events []AttemptEvent
	var mu sync.Mutex
	m, logs := newTestMemory(t, p, WithObserver(func(ev AttemptEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}))

	require.NoError(t, m.Init(context.Background()))

	assert.Equal(t, 3, p.acquireCount())
	assert.True(t, m.Bound())
	assert.Equal(t, 2, logs.FilterMessageSnippet("failed").FilterLevelExact(zapcore.WarnLevel).Len())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.ErrorIs(t, events[0].Err, errNotRunning)
	assert.ErrorIs(t, events[1].Err, errNotRunning)
	assert.True(t, events[2].Bound)
	assert.Equal(t, 3, events[2].Attempt)

	stats := m.Stats()
	assert.Equal(t, 3, stats.Attempts)
	assert.Equal(t, 2, stats.Failures)
	assert.ErrorIs(t, stats.LastError, errNotRunning)
	assert.True(t, stats.Bound)
	assert.False(t, stats.BoundAt.IsZero())
	assert.False(t, stats.Polling)
	assert.NoError(t, stats.StopErr)
}

func TestInit_NoAcquireAfterBound(t *testing.T) {
	p := newFakeProvider(0)
	m := boundMemory(t, p)
	require.Equal(t, 1, p.acquireCount())

	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.Init(context.Background()))

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, p.acquireCount())
}

func TestInit_WaitsOneIntervalPerAttempt(t *testing.T) {
	p := newFakeProvider(2)
	interval := 20 * time.Millisecond
	m, _ := newTestMemory(t, p, WithPollInterval(interval))

	start := time.Now()
	require.NoError(t, m.Init(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 3*interval-5*time.Millisecond)
}

func TestInit_KeepsPollingWhileFailing(t *testing.T) {
	p := newFakeProvider(1 << 30)
	m, _ := newTestMemory(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Init(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, p.acquireCount(), 5)
	assert.False(t, m.Bound())
}

func TestInit_Canceled(t *testing.T) {
	p := newFakeProvider(1 << 30)
	m, _ := newTestMemory(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Init(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.acquireCount())
}

func TestInit_MaxAttempts(t *testing.T) {
	p := newFakeProvider(10)
	m, _ := newTestMemory(t, p, WithMaxAttempts(3))

	err := m.Init(context.Background())
	require.ErrorIs(t, err, ErrAcquireExhausted)
	assert.ErrorIs(t, err, errNotRunning)
	assert.Equal(t, 3, p.acquireCount())

	stats := m.Stats()
	assert.False(t, stats.Polling)
	assert.ErrorIs(t, stats.StopErr, ErrAcquireExhausted)

	_, err = m.ReadScalar(0x1000, U8)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInit_NilHandleIsFailure(t *testing.T) {
	p := &nilProvider{}
	m, _ := newTestMemory(t, p, WithMaxAttempts(2))

	err := m.Init(context.Background())
	require.ErrorIs(t, err, ErrAcquireExhausted)
	assert.ErrorIs(t, err, errNilHandle)
}

type nilProvider struct{}

func (nilProvider) Acquire() (Handle, error) { return nil, nil }

func (nilProvider) Read(Handle, uint32, ByteSize) (uint32, error) { return 0, nil }

func TestClose_StopsPolling(t *testing.T) {
	p := newFakeProvider(1 << 30)
	m, _ := newTestMemory(t, p)

	errc := make(chan error, 1)
	go func() { errc <- m.Init(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Init did not return after Close")
	}
}

// blockingProvider holds Acquire until release is closed.
type blockingProvider struct {
	entered chan struct{}
	release chan struct{}
	handle  *fakeHandle
}

func (p *blockingProvider) Acquire() (Handle, error) {
	close(p.entered)
	<-p.release
	return p.handle, nil
}

func (p *blockingProvider) Read(Handle, uint32, ByteSize) (uint32, error) { return 0, nil }

func TestClose_ReleasesHandleAcquiredDuringClose(t *testing.T) {
	p := &blockingProvider{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		handle:  &fakeHandle{},
	}
	m, _ := newTestMemory(t, p)

	errc := make(chan error, 1)
	go func() { errc <- m.Init(context.Background()) }()

	select {
	case <-p.entered:
	case <-time.After(time.Second):
		t.Fatal("Acquire was not called")
	}
	assert.True(t, m.Stats().Polling)

	require.NoError(t, m.Close())
	close(p.release)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Init did not return after Close")
	}
	assert.Equal(t, 1, p.handle.closeCount())
	assert.False(t, m.Bound())
	assert.ErrorIs(t, m.Stats().StopErr, ErrClosed)
}

func TestClose_ReleasesHandle(t *testing.T) {
	p := newFakeProvider(0)
	m := boundMemory(t, p)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, p.handle.closeCount())

	_, err := m.ReadScalar(0x1000, U8)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Init(context.Background()), ErrClosed)
}

func TestRead_NotInitialized(t *testing.T) {
	p := newFakeProvider(0)
	m, _ := newTestMemory(t, p)

	_, err := m.ReadScalar(0x1000, U32)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = m.Read(0x1000)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = m.ReadString(0x2000, 5)
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.Empty(t, p.readCalls())
	assert.Equal(t, 0, p.acquireCount())
}

func TestReadScalar_Widths(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x100, 0x78, 0x56, 0x34, 0x12)
	m := boundMemory(t, p)

	tests := []struct {
		size     ByteSize
		expected uint32
	}{
		{U8, 0x78},
		{U16, 0x5678},
		{U32, 0x12345678},
	}

	for _, tt := range tests {
		t.Run(tt.size.String(), func(t *testing.T) {
			before := len(p.readCalls())

			v, err := m.ReadScalar(0x100, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)

			calls := p.readCalls()[before:]
			require.Len(t, calls, 1)
			assert.Equal(t, readCall{addr: 0x100, size: tt.size}, calls[0])
		})
	}
}

func TestReadScalar_PassThrough(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x1000, 0x42, 0x00, 0x00, 0x00)
	m := boundMemory(t, p)

	v, err := m.ReadScalar(0x1000, U32)
	require.NoError(t, err)
	assert.Equal(t, uint32(66), v)
}

func TestReadScalar_InvalidWidth(t *testing.T) {
	p := newFakeProvider(0)
	m := boundMemory(t, p)

	_, err := m.ReadScalar(0x1000, 3)
	assert.ErrorIs(t, err, ErrInvalidByteSize)
	assert.Empty(t, p.readCalls())
}

func TestReadScalar_ReadFailure(t *testing.T) {
	p := newFakeProvider(0)
	p.failAt[0x1000] = true
	m := boundMemory(t, p)

	_, err := m.ReadScalar(0x1000, U16)
	require.Error(t, err)

	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, uint32(0x1000), re.Addr)
	assert.Equal(t, U16, re.Size)
	assert.Contains(t, err.Error(), "0x001000")
	assert.Len(t, p.readCalls(), 1, "reads are not retried")
	assert.Equal(t, 1, p.acquireCount(), "handle is not re-acquired")
}

func TestRead_DefaultWidth(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x10, 0xEF, 0xBE)

	m, _ := newTestMemory(t, p)
	require.NoError(t, m.Init(context.Background()))
	v, err := m.Read(0x10)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xEF), v)

	m16, _ := newTestMemory(t, p, WithDefaultWidth(U16))
	require.NoError(t, m16.Init(context.Background()))
	v, err = m16.Read(0x10)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xBEEF), v)
}

func TestReadString(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x2000, 72, 101, 108, 108, 111)
	m := boundMemory(t, p)

	s, err := m.ReadString(0x2000, 5)
	require.NoError(t, err)
	assert.Equal(t, "Hello", s)

	calls := p.readCalls()
	require.Len(t, calls, 5)
	for i, c := range calls {
		assert.Equal(t, readCall{addr: 0x2000 + uint32(i), size: U8}, c)
	}
}

func TestReadString_FixedLength(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x2000, 'G', 'A', 0, 'E')
	m := boundMemory(t, p)

	s, err := m.ReadString(0x2000, 4)
	require.NoError(t, err)
	assert.Equal(t, "GA\x00E", s)

	s, err = m.ReadString(0x2000, 0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestReadString_ByteAsCodePoint(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x2000, 0xE9)
	m := boundMemory(t, p)

	s, err := m.ReadString(0x2000, 1)
	require.NoError(t, err)
	assert.Equal(t, "é", s)
}

func TestReadString_AbortsOnFirstFailure(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x2000, 'a', 'b', 'c', 'd', 'e')
	p.failAt[0x2002] = true
	m := boundMemory(t, p)

	s, err := m.ReadString(0x2000, 5)
	require.Error(t, err)
	assert.Empty(t, s)

	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, uint32(0x2002), re.Addr)

	calls := p.readCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, uint32(0x2002), calls[2].addr)
}

func TestReadBytes_PastEndOfAddressSpace(t *testing.T) {
	p := newFakeProvider(0)
	m := boundMemory(t, p)

	_, err := m.ReadString(0xFFFFFFFE, 4)
	require.ErrorIs(t, err, ErrInvalidLength)
	assert.Empty(t, p.readCalls())

	p.set(0xFFFFFFFE, 'o', 'k')
	s, err := m.ReadString(0xFFFFFFFE, 2)
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}

func TestReadString_NegativeLength(t *testing.T) {
	p := newFakeProvider(0)
	m := boundMemory(t, p)

	_, err := m.ReadString(0x2000, -1)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestReadStringEncoded_ShiftJIS(t *testing.T) {
	p := newFakeProvider(0)
	// "ＡＢ＃1" in Shift-JIS followed by NUL padding.
	p.set(0x3000, 0x82, 0x60, 0x82, 0x61, 0x81, 0x94, 0x31, 0x00, 0x00, 0x00)
	m := boundMemory(t, p)

	s, err := m.ReadStringEncoded(0x3000, 10, japanese.ShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, "ＡＢ＃1", s)
	assert.Len(t, p.readCalls(), 10)
}

func TestConcurrentReads(t *testing.T) {
	p := newFakeProvider(0)
	p.set(0x10, 1, 2, 3, 4)
	m := boundMemory(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.ReadScalar(0x10, U32)
			assert.NoError(t, err)
			assert.Equal(t, uint32(0x04030201), v)
		}()
	}
	wg.Wait()
}
