package cmd

import "github.com/urfave/cli"

const (
	usage = `dolphinmem reads the emulated RAM of a running Dolphin (GameCube/Wii) emulator,
             either once from the command line or interactively through an attached server`
)

func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "dolphinmem"
	app.Usage = usage
	app.Commands = []cli.Command{
		read,
		str,
		attach,
		conn,
	}

	return app
}
