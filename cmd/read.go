package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	e "dolphinmem/error"
	"dolphinmem/pkg/memory"
	"dolphinmem/utils"
)

var read = cli.Command{
	Name:      "read",
	Usage:     "read an unsigned value from emulated RAM",
	ArgsUsage: "<address> [u8|u16|u32]",
	Flags:     commonFlags(),
	Action: func(context *cli.Context) error {
		if err := utils.CheckArgs(context, 1, utils.MinArgs, readArgsCheck); err != nil {
			return err
		}

		return exec(Read, context)
	},
}

type readArgs struct {
	addr uint32
	size memory.ByteSize
	// sized is false when the width falls back to the default.
	sized bool
}

func rArgs(args cli.Args) (*readArgs, error) {
	addr, err := utils.ParseAddress(args.First())
	if err != nil {
		return nil, err
	}

	r := &readArgs{addr: addr}
	if w := args.Get(1); w != "" {
		size, err := memory.ParseByteSize(w)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", e.InvalidWidth, err)
		}
		r.size, r.sized = size, true
	}
	return r, nil
}

func readArgsCheck(args cli.Args) error {
	if len(args) > 2 {
		return fmt.Errorf("read takes at most 2 arguments, got %d", len(args))
	}
	_, err := rArgs(args)
	return err
}
