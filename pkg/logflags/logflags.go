package logflags

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// DefaultLogDesc sends log output to stderr.
const DefaultLogDesc = ""

var (
	memory  = false
	prowler = false
	http    = false
	grpc    = false

	logOut  io.WriteCloser = os.Stderr
	colored               = false
)

// Logger is the logging interface used across the tool. *zap.SugaredLogger
// implements it.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
}

var errLogstrWithoutLog = errors.New("--logStr specified without --logFlag")

// Setup sets the log flags. logstr is a comma separated list of components
// (memory, prowler, http, grpc) and logDest is a file path or a file
// descriptor number. An empty logDest keeps stderr.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		out, err := openDest(logDest)
		if err != nil {
			return err
		}
		logOut = out
	}
	colored = isTerminal(logOut)

	if !logFlag {
		if logstr != "" && logstr != defaultComponents {
			return errLogstrWithoutLog
		}
		return nil
	}

	if logstr == "" {
		logstr = defaultComponents
	}
	for _, component := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(component) {
		case "memory":
			memory = true
		case "prowler":
			prowler = true
		case "http":
			http = true
		case "grpc":
			grpc = true
		case "":
		default:
			return fmt.Errorf("unknown log component %q", component)
		}
	}

	return nil
}

const defaultComponents = "memory,prowler,http,grpc"

func openDest(logDest string) (io.WriteCloser, error) {
	if fd, err := strconv.Atoi(logDest); err == nil {
		return os.NewFile(uintptr(fd), "dolphinmem-logs"), nil
	}

	f, err := os.OpenFile(logDest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log destination %s: %w", logDest, err)
	}
	return f, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func output() io.Writer {
	if f, ok := logOut.(*os.File); ok && colored {
		return colorable.NewColorable(f)
	}
	return logOut
}

// Close closes the log destination when it is not stderr.
func Close() {
	if logOut != os.Stderr {
		_ = logOut.Close()
	}
	logOut = os.Stderr
}
