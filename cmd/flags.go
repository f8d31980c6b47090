package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"dolphinmem/pkg/config"
	"dolphinmem/pkg/logflags"
	"dolphinmem/pkg/memory"
	"dolphinmem/pkg/prowler"
)

func logFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "logFlag, f",
			Usage: "enable debug logging",
		},
		cli.StringFlag{
			Name:  "logStr, s",
			Usage: "comma separated components to log (memory, prowler, http, grpc)",
		},
		cli.StringFlag{
			Name:  "logDesc, d",
			Usage: "log destination: a file path or a file descriptor number",
			Value: logflags.DefaultLogDesc,
		},
	}
}

func memoryFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: fmt.Sprintf("config file (default %s, or $%s)", config.Path(), config.EnvOverride),
		},
		cli.DurationFlag{
			Name:  "interval, i",
			Usage: "time between attempts to find Dolphin",
		},
		cli.IntFlag{
			Name:  "max-attempts, m",
			Usage: "give up after this many attempts, 0 polls forever",
		},
		cli.DurationFlag{
			Name:  "timeout, t",
			Usage: "give up binding after this long, 0 waits forever",
		},
		cli.IntFlag{
			Name:  "pid, p",
			Usage: "attach to this process instead of searching by name",
		},
		cli.StringSliceFlag{
			Name:  "process-name, n",
			Usage: "executable name prefix to search for, may be repeated",
		},
		cli.StringFlag{
			Name:  "width, w",
			Usage: "default read width: u8, u16 or u32",
		},
	}
}

func commonFlags(extra ...cli.Flag) []cli.Flag {
	flags := append(memoryFlags(), logFlags()...)
	return append(flags, extra...)
}

// loadConfig reads the config file and applies the flags explicitly set on
// the command line over it.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String("config")
	if path == "" {
		path = config.Path()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("interval") {
		cfg.PollInterval = ctx.Duration("interval")
	}
	if ctx.IsSet("max-attempts") {
		cfg.MaxAttempts = ctx.Int("max-attempts")
	}
	if ctx.IsSet("timeout") {
		cfg.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("pid") {
		cfg.Pid = ctx.Int("pid")
	}
	if ctx.IsSet("process-name") {
		cfg.ProcessNames = ctx.StringSlice("process-name")
	}
	if ctx.IsSet("width") {
		cfg.DefaultWidth = ctx.String("width")
	}
	if ctx.IsSet("listen") {
		cfg.Listen = ctx.String("listen")
	}
	if ctx.IsSet("grpc") {
		cfg.GRPCListen = ctx.String("grpc")
	}
	if ctx.IsSet("logFlag") {
		cfg.Log.Enabled = ctx.Bool("logFlag")
	}
	if ctx.IsSet("logStr") {
		cfg.Log.Components = ctx.String("logStr")
	}
	if ctx.IsSet("logDesc") {
		cfg.Log.Dest = ctx.String("logDesc")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func memoryOptions(cfg *config.Config, extra ...memory.Option) ([]memory.Option, error) {
	opts := []memory.Option{
		memory.WithPollInterval(cfg.PollInterval),
		memory.WithMaxAttempts(cfg.MaxAttempts),
	}

	if cfg.DefaultWidth != "" {
		w, err := memory.ParseByteSize(cfg.DefaultWidth)
		if err != nil {
			return nil, err
		}
		opts = append(opts, memory.WithDefaultWidth(w))
	}

	return append(opts, extra...), nil
}

func prowlerOptions(cfg *config.Config) prowler.Options {
	opts := prowler.DefaultOptions()
	opts.Pid = cfg.Pid
	if len(cfg.ProcessNames) > 0 {
		opts.ProcessNames = cfg.ProcessNames
	}
	return opts
}

func setupLogging(cfg *config.Config) error {
	return logflags.Setup(cfg.Log.Enabled, strings.TrimSpace(cfg.Log.Components), cfg.Log.Dest)
}
