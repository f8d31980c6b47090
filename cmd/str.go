package cmd

import (
	"github.com/urfave/cli"

	"dolphinmem/utils"
)

var str = cli.Command{
	Name:      "str",
	Usage:     "read a fixed-length string from emulated RAM",
	ArgsUsage: "<address> <length>",
	Flags: commonFlags(
		cli.StringFlag{
			Name:  "encoding, e",
			Usage: "latin1 (one code point per byte) or sjis",
			Value: utils.EncodingLatin1,
		},
	),
	Action: func(context *cli.Context) error {
		if err := utils.CheckArgs(context, 2, utils.ExactArgs, strArgsCheck); err != nil {
			return err
		}

		return exec(Str, context)
	},
}

type stringArgs struct {
	addr     uint32
	n        int
	encoding string
}

func sArgs(context *cli.Context) (*stringArgs, error) {
	args := context.Args()
	addr, err := utils.ParseAddress(args.First())
	if err != nil {
		return nil, err
	}

	n, err := utils.ParseCount(args.Get(1))
	if err != nil {
		return nil, err
	}

	return &stringArgs{addr: addr, n: n, encoding: context.String("encoding")}, nil
}

func strArgsCheck(args cli.Args) error {
	if _, err := utils.ParseAddress(args.First()); err != nil {
		return err
	}
	_, err := utils.ParseCount(args.Get(1))
	return err
}
