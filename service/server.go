package service

import (
	"net"

	"dolphinmem/pkg/logflags"
)

// Server represents a server for a remote client
// to connect to.
type Server interface {
	Run() error
	Stop() error
}

type ServerImpl struct {
	Logger   logflags.Logger
	Listener net.Listener
	StopChan chan struct{}
}

func NewServerImpl(listener net.Listener, component string) ServerImpl {
	si := ServerImpl{
		Listener: listener,
		StopChan: make(chan struct{}),
	}
	si.SetupLogger(component)
	return si
}

// SetupLogger picks the component logger. logflags.Setup must already have
// run for the component to be enabled.
func (si *ServerImpl) SetupLogger(component string) {
	switch component {
	case "grpc":
		si.Logger = logflags.GRPCLogger()
	case "http":
		fallthrough
	default:
		si.Logger = logflags.HTTPLogger()
	}
}

func (si *ServerImpl) Addr() string {
	if si.Listener == nil {
		return ""
	}
	return si.Listener.Addr().String()
}
