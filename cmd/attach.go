package cmd

import (
	"github.com/urfave/cli"

	"dolphinmem/utils"
)

var attach = cli.Command{
	Name:  "attach",
	Usage: "bind to Dolphin, serve reads over HTTP and open a terminal",
	Flags: commonFlags(
		cli.StringFlag{
			Name:  "listen, l",
			Usage: "HTTP listen address",
		},
		cli.StringFlag{
			Name:  "grpc, g",
			Usage: "also serve gRPC health checks on this address",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "do not open a terminal; serve until interrupted",
		},
	),
	Action: func(context *cli.Context) error {
		if err := utils.CheckArgs(context, 0, utils.ExactArgs, attachArgsCheck(context)); err != nil {
			return err
		}

		return exec(Attach, context)
	},
}

func attachArgsCheck(context *cli.Context) func(cli.Args) error {
	return func(cli.Args) error {
		if !context.IsSet("pid") {
			return nil
		}
		return checkPid(context.Int("pid"))
	}
}
