package memory

// Handle is a bound connection to the target process's memory. It is owned
// by the Memory that acquired it and released through Close.
type Handle interface {
	Close() error
}

// Provider is the backend that attaches to the target process and copies
// bytes out of it.
type Provider interface {
	// Acquire attempts to bind to the target process. It fails while the
	// target is not running or not attachable.
	Acquire() (Handle, error)

	// Read returns the unsigned value formed by size bytes at addr.
	Read(h Handle, addr uint32, size ByteSize) (uint32, error)
}

// PlatformChecker is implemented by providers that only work on some
// operating systems. Values are GOOS names.
type PlatformChecker interface {
	SupportedPlatforms() []string
}
