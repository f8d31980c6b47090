package grpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"dolphinmem/pkg/memory"
	"dolphinmem/service"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "dolphinmem"

// Server exposes the binding state over the gRPC health protocol. It reports
// NOT_SERVING until the memory facade binds.
type Server struct {
	service.ServerImpl
	grpcServer *grpc.Server
	health     *health.Server
}

func NewServer(listener net.Listener) *Server {
	s := &Server{
		ServerImpl: service.NewServerImpl(listener, "grpc"),
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
	}

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// Observe is a memory.WithObserver callback.
func (s *Server) Observe(ev memory.AttemptEvent) {
	if ev.Bound {
		s.Logger.Infof("memory bound after %d attempts, serving", ev.Attempt)
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
		return
	}
	s.Logger.Debugf("attempt %d: %v", ev.Attempt, ev.Err)
}

// SetServing reports the binding state directly.
func (s *Server) SetServing(serving bool) {
	if serving {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) Run() error {
	s.Logger.Infof("grpc health server listening on %s", s.Addr())
	go func() {
		if err := s.grpcServer.Serve(s.Listener); err != nil {
			s.Logger.Errorf("grpc server: %v", err)
		}
	}()

	return nil
}

func (s *Server) Stop() error {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	return nil
}
