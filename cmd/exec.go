package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli"

	"dolphinmem/pkg/config"
	"dolphinmem/pkg/logflags"
	"dolphinmem/pkg/memory"
	"dolphinmem/pkg/prowler"
	"dolphinmem/pkg/terminal"
	"dolphinmem/service"
	"dolphinmem/service/grpc"
	"dolphinmem/service/http"
	"dolphinmem/utils"
)

type ExecType int

const (
	Read ExecType = iota
	Str
	Attach
	Conn
)

type executor struct {
	et  ExecType
	ctx *cli.Context
	cfg *config.Config
}

func newExecutor(et ExecType, ctx *cli.Context) (*executor, error) {
	ex := &executor{
		et:  et,
		ctx: ctx,
	}
	if et == Conn {
		return ex, nil
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	ex.cfg = cfg

	return ex, nil
}

func (e *executor) run() error {
	switch e.et {
	case Read:
		return e.read()
	case Str:
		return e.str()
	case Attach:
		return e.attach()
	case Conn:
		args := e.ctx.Args()
		return e.connect(args.First())
	}

	return nil
}

func exec(et ExecType, ctx *cli.Context) error {
	ex, err := newExecutor(et, ctx)
	if err != nil {
		return err
	}
	defer logflags.Close()

	return ex.run()
}

func checkPid(pid int) error {
	if !utils.CheckPid(strconv.Itoa(pid)) {
		return fmt.Errorf("pid %d does not exist", pid)
	}
	return nil
}

func (e *executor) newMemory(extra ...memory.Option) (*memory.Memory, error) {
	opts, err := memoryOptions(e.cfg, extra...)
	if err != nil {
		return nil, err
	}
	return prowler.NewMemory(prowlerOptions(e.cfg), opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// bind runs Init bounded by the configured timeout.
func (e *executor) bind(ctx context.Context, mem *memory.Memory) error {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return mem.Init(ctx)
}

// readOnce binds a fresh Memory, runs fn and releases it.
func (e *executor) readOnce(fn func(mem *memory.Memory) error) error {
	mem, err := e.newMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := e.bind(ctx, mem); err != nil {
		return err
	}
	return fn(mem)
}

func (e *executor) read() error {
	r, err := rArgs(e.ctx.Args())
	if err != nil {
		return err
	}

	return e.readOnce(func(mem *memory.Memory) error {
		size := mem.DefaultWidth()
		if r.sized {
			size = r.size
		}

		v, err := mem.ReadScalar(r.addr, size)
		if err != nil {
			return err
		}

		utils.PrintValue(r.addr, v, size)
		return nil
	})
}

func (e *executor) str() error {
	s, err := sArgs(e.ctx)
	if err != nil {
		return err
	}
	if _, err := utils.LookupEncoding(s.encoding); err != nil {
		return err
	}

	return e.readOnce(func(mem *memory.Memory) error {
		v, err := utils.ReadStringAs(mem, s.addr, s.n, s.encoding)
		if err != nil {
			return err
		}

		utils.PrintStringLine(utils.FormatString(v))
		return nil
	})
}

func (e *executor) attach() error {
	ctx, stop := signalContext()
	defer stop()

	listener, err := net.Listen("tcp", e.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", e.cfg.Listen, err)
	}

	var (
		servers []service.Server
		extra   []memory.Option
		gs      *grpc.Server
	)

	if e.cfg.GRPCListen != "" {
		grpcListener, err := net.Listen("tcp", e.cfg.GRPCListen)
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("listen on %s: %w", e.cfg.GRPCListen, err)
		}
		gs = grpc.NewServer(grpcListener)
		servers = append(servers, gs)
		extra = append(extra, memory.WithObserver(gs.Observe))
	}

	mem, err := e.newMemory(extra...)
	if err != nil {
		_ = listener.Close()
		for _, s := range servers {
			_ = s.Stop()
		}
		return err
	}
	defer mem.Close()

	hs := http.NewServer(listener, mem)
	servers = append(servers, hs)

	for _, s := range servers {
		defer s.Stop()
		if err := s.Run(); err != nil {
			return err
		}
	}
	if gs != nil {
		defer gs.SetServing(false)
	}
	fmt.Printf("dolphinmem server listening on %s\n", hs.Addr())

	bound := make(chan error, 1)
	go func() {
		bound <- e.bind(ctx, mem)
	}()

	if !e.ctx.Bool("headless") {
		go reportBind(bound, logflags.MemoryLogger())
		return e.connect(hs.Addr())
	}

	if err := bindFailure(<-bound); err != nil {
		return err
	}
	fmt.Println("bound to Dolphin, serving until interrupted")
	<-ctx.Done()
	return nil
}

// bindFailure drops the errors that only mean attach is shutting down.
func bindFailure(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, memory.ErrClosed) {
		return nil
	}
	return err
}

// reportBind logs why background binding stopped without a handle.
func reportBind(bound <-chan error, logger logflags.Logger) {
	if err := bindFailure(<-bound); err != nil {
		logger.Errorf("stopped polling for Dolphin: %v", err)
	}
}

func (e *executor) connect(addr string) error {
	client, err := http.NewClient(addr)
	if err != nil {
		return err
	}

	term := terminal.New(client)
	return term.Run()
}
