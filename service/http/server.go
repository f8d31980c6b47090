package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"dolphinmem/service"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	service.ServerImpl
	httpServer *http.Server
	pool       sync.Pool
}

func NewServer(listener net.Listener, mem MemoryReader) *Server {
	s := &Server{
		ServerImpl: service.NewServerImpl(listener, "http"),
		pool: sync.Pool{
			New: func() interface{} {
				return newProcessor(mem)
			},
		},
	}

	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Run() error {
	s.Logger.Infof("http server listening on %s", s.Addr())
	go func() {
		if err := s.httpServer.Serve(s.Listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Errorf("http server: %v", err)
		}
	}()

	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(s.Logger, w, r)
	p := s.pool.Get().(*processor)
	defer s.pool.Put(p)

	httpHandlerChain(p.worker).exec(ctx)
}
