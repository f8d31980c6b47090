package memory

import (
	"runtime"
	"time"

	"dolphinmem/pkg/logflags"
)

const (
	DefaultPollInterval = time.Second
	DefaultWidth        = U8
)

// AttemptEvent describes one acquisition attempt made by Init.
type AttemptEvent struct {
	Attempt int
	Err     error
	Bound   bool
	At      time.Time
}

// Config controls acquisition and read defaults of a Memory.
type Config struct {
	// PollInterval is the delay between acquisition attempts.
	PollInterval time.Duration
	// MaxAttempts bounds the number of acquisition attempts made by a single
	// Init call. Zero polls until the context is done.
	MaxAttempts int
	// DefaultWidth is used by Read.
	DefaultWidth ByteSize
	Logger       logflags.Logger
	// Observer receives every acquisition attempt. It is called without
	// locks held and must not block.
	Observer func(AttemptEvent)

	goos string
}

func defaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		DefaultWidth: DefaultWidth,
		goos:         runtime.GOOS,
	}
}

type Option func(*Config)

func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxAttempts = n
		}
	}
}

func WithDefaultWidth(w ByteSize) Option {
	return func(c *Config) {
		c.DefaultWidth = w
	}
}

func WithLogger(l logflags.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithObserver(fn func(AttemptEvent)) Option {
	return func(c *Config) {
		c.Observer = fn
	}
}

// WithGOOS overrides the host operating system used for platform gating.
func WithGOOS(goos string) Option {
	return func(c *Config) {
		c.goos = goos
	}
}

// AcquireStats is a snapshot of the acquisition state of a Memory.
type AcquireStats struct {
	Attempts  int
	Failures  int
	LastError error
	Bound     bool
	BoundAt   time.Time
	// Polling is true while an Init call is attempting acquisition.
	Polling bool
	// StopErr is why the last Init returned without binding.
	StopErr error
}
