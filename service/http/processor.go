package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/derekparker/trie"

	e "dolphinmem/error"
	"dolphinmem/pkg/memory"
	"dolphinmem/utils"
)

// MemoryReader is the part of *memory.Memory the routes use.
type MemoryReader interface {
	utils.StringReader
	ReadScalar(addr uint32, size memory.ByteSize) (uint32, error)
	DefaultWidth() memory.ByteSize
	Stats() memory.AcquireStats
}

type Router struct {
	method string
	path   string
	fn     func(ctx *Context)
}

type processor struct {
	mem    MemoryReader
	router []*Router
	trie   *trie.Trie
}

func (p *processor) route(method, path string) func(ctx *Context) {
	node, found := p.trie.Find(utils.MD5(methodPath(method, path)))
	if found {
		fn := node.Meta().(func(ctx *Context))
		return fn
	}

	return nil
}

func (p *processor) worker(ctx *Context) {
	if ctx.responded() {
		return
	}

	req := ctx.request
	fn := p.route(req.method, req.path)
	if fn == nil {
		ctx.respFailed(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}

	fn(ctx)
}

func newProcessor(mem MemoryReader) *processor {
	proc := &processor{
		mem: mem,
	}

	register(proc)
	return proc
}

func register(p *processor) {
	r := []*Router{
		{
			method: http.MethodGet,
			path:   "/dolphinmem",
			fn: func(ctx *Context) {
				ctx.respSuccess(nil)
			},
		},
		{
			method: http.MethodGet,
			path:   "/read",
			fn: func(ctx *Context) {
				args, ok := expect(ctx, "read", 1, 2)
				if !ok {
					return
				}

				addr, err := utils.ParseAddress(args[0])
				if err != nil {
					ctx.respFailed(statusFor(err), err.Error())
					return
				}

				size := p.mem.DefaultWidth()
				if len(args) > 1 {
					size, err = memory.ParseByteSize(args[1])
					if err != nil {
						ctx.respFailed(http.StatusBadRequest, fmt.Errorf("%w: %w", e.InvalidWidth, err).Error())
						return
					}
				}

				v, err := p.mem.ReadScalar(addr, size)
				if err != nil {
					ctx.respFailed(statusFor(err), err.Error())
					return
				}

				ctx.respSuccess(utils.FormatValue(v, size))
			},
		},
		{
			method: http.MethodGet,
			path:   "/string",
			fn: func(ctx *Context) {
				args, ok := expect(ctx, "str", 2, 3)
				if !ok {
					return
				}

				addr, err := utils.ParseAddress(args[0])
				if err != nil {
					ctx.respFailed(statusFor(err), err.Error())
					return
				}

				n, err := utils.ParseCount(args[1])
				if err != nil {
					ctx.respFailed(statusFor(err), err.Error())
					return
				}

				var enc string
				if len(args) > 2 {
					enc = args[2]
				}

				s, err := utils.ReadStringAs(p.mem, addr, n, enc)
				if err != nil {
					ctx.respFailed(statusFor(err), err.Error())
					return
				}

				ctx.respSuccess(utils.FormatString(s))
			},
		},
		{
			method: http.MethodGet,
			path:   "/status",
			fn: func(ctx *Context) {
				ctx.respSuccess(formatStats(p.mem.Stats()))
			},
		},
	}

	p.router = r

	t := trie.New()
	for _, router := range p.router {
		md5 := utils.MD5(methodPath(router.method, router.path))
		t.Add(md5, router.fn)
	}

	p.trie = t
}

// expect checks the expression command and its argument count, answering
// the request itself when they do not match.
func expect(ctx *Context, cmd string, minArgs, maxArgs int) ([]string, bool) {
	name, args := ctx.expr.resolve()
	if strings.ToLower(name) != cmd {
		ctx.respFailed(http.StatusBadRequest, fmt.Sprintf("%s: %q", e.UnknownCommand, name))
		return nil, false
	}

	if len(args) < minArgs || len(args) > maxArgs {
		ctx.respFailed(http.StatusBadRequest, fmt.Sprintf("invalid number of arguments: %d", len(args)))
		return nil, false
	}

	return args, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, memory.ErrNotInitialized), errors.Is(err, memory.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, e.InvalidAddress),
		errors.Is(err, e.InvalidCount),
		errors.Is(err, e.InvalidWidth),
		errors.Is(err, e.UnknownEncoding),
		errors.Is(err, memory.ErrInvalidByteSize),
		errors.Is(err, memory.ErrInvalidLength):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func formatStats(st memory.AcquireStats) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "bound: %t\n", st.Bound)
	fmt.Fprintf(&buf, "attempts: %d\n", st.Attempts)
	fmt.Fprintf(&buf, "failures: %d\n", st.Failures)
	fmt.Fprintf(&buf, "polling: %t\n", st.Polling)
	if st.LastError != nil {
		fmt.Fprintf(&buf, "last error: %v\n", st.LastError)
	}
	if st.StopErr != nil {
		fmt.Fprintf(&buf, "stopped: %v\n", st.StopErr)
	}
	if st.Bound {
		fmt.Fprintf(&buf, "bound at: %s\n", st.BoundAt.Format(time.RFC3339))
	}
	return buf.String()
}

func methodPath(method, path string) string {
	return fmt.Sprintf("%s:%s", method, path)
}
