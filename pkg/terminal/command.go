package terminal

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/shlex"

	e "dolphinmem/error"
	"dolphinmem/service"
)

var argumentsErr = "invalid number of arguments, expected %s, actual %d"

type cmdFn func(term *Term, args []string) error

type command struct {
	aliases []string
	// minArgs and maxArgs bound the argument count; maxArgs < 0 is unbounded.
	minArgs, maxArgs int
	fn               cmdFn
	help             string
}

func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

func (c command) checkArgs(args []string) error {
	if len(args) >= c.minArgs && (c.maxArgs < 0 || len(args) <= c.maxArgs) {
		return nil
	}

	expected := fmt.Sprintf("%d", c.minArgs)
	switch {
	case c.maxArgs < 0:
		expected += " or more"
	case c.maxArgs != c.minArgs:
		expected = fmt.Sprintf("%d to %d", c.minArgs, c.maxArgs)
	}
	return fmt.Errorf(argumentsErr, expected, len(args))
}

type Commands struct {
	cmds   []command
	client service.Client
}

func NewCommands(client service.Client) *Commands {
	c := &Commands{
		client: client,
	}

	c.cmds = []command{
		{
			aliases: []string{"help", "h"},
			maxArgs: 1,
			fn:      c.help,
			help: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{
			aliases: []string{"read", "r"},
			minArgs: 1,
			maxArgs: 2,
			fn:      sendExpr(service.Read),
			help: `Reads an unsigned value from emulated RAM.

	read <address> [width]

Width is u8, u16 or u32 (or 1, 2, 4). Without it the configured default width is used.`},
		{
			aliases: []string{"str", "s"},
			minArgs: 2,
			maxArgs: 3,
			fn:      sendExpr(service.String),
			help: `Reads a fixed-length string from emulated RAM.

	str <address> <length> [encoding]

Encoding is latin1 (one code point per byte, the default) or sjis.`},
		{
			aliases: []string{"status", "st"},
			fn:      sendExpr(service.Status),
			help:    "Prints the memory handle acquisition state.",
		},
		{
			aliases: []string{"transcript"},
			minArgs: 1,
			maxArgs: 2,
			fn:      transcript,
			help: `Appends command output to a file.

	transcript [-t] <output file>
	transcript -off

-t truncates the file first. -off stops writing the transcript.`},
		{
			aliases: []string{"exit", "quit", "q"},
			fn:      exit,
			help:    "Exits the terminal. Under attach this also stops the servers and releases Dolphin; use attach --headless to keep serving.",
		},
	}
	return c
}

// Find will look up the command function for the given command input.
// If it cannot find the command it will default to noCmdAvailable().
func (c *Commands) Find(cmdstr string) command {
	if cmdstr == "" {
		return command{aliases: []string{"nullcmd"}, maxArgs: -1, fn: nullCommand}
	}

	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v
		}
	}

	return command{aliases: []string{"nocmd"}, maxArgs: -1, fn: noCmdAvailable}
}

func (c *Commands) Call(cmdStr string, t *Term) error {
	fields, err := shlex.Split(cmdStr)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	cmd := c.Find(fields[0])
	args := fields[1:]
	if err := cmd.checkArgs(args); err != nil {
		return err
	}
	return cmd.fn(t, args)
}

func (c *Commands) help(t *Term, args []string) error {
	if len(args) == 1 {
		cmd := c.Find(args[0])
		if cmd.aliases[0] == "nocmd" {
			return fmt.Errorf("%w: %s", e.UnknownCommand, args[0])
		}
		_, err := fmt.Fprintln(t.stdout, cmd.help)
		return err
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 0, '-', 0)
	for _, cmd := range c.cmds {
		h := cmd.help
		if idx := strings.Index(h, "\n"); idx >= 0 {
			h = h[:idx]
		}
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
		} else {
			fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

func sendExpr(cmdType service.CmdType) cmdFn {
	return func(t *Term, args []string) error {
		v, err := t.client.SendExpr(cmdType, strings.Join(args, " "))
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(t.stdout, strings.TrimSuffix(v, "\n"))
		return err
	}
}

func transcript(t *Term, args []string) error {
	if args[0] == "-off" {
		if len(args) > 1 {
			return fmt.Errorf(argumentsErr, "1", len(args))
		}
		return t.stdout.CloseTranscript()
	}

	truncate := false
	if args[0] == "-t" {
		if len(args) != 2 {
			return fmt.Errorf(argumentsErr, "2", len(args))
		}
		truncate = true
		args = args[1:]
	}
	return t.stdout.OpenTranscript(args[0], truncate)
}

type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exit(t *Term, args []string) error {
	return ExitRequestError{}
}

var errNoCmd = errors.New("command not available")

func noCmdAvailable(t *Term, args []string) error {
	return errNoCmd
}

func nullCommand(t *Term, args []string) error {
	return nil
}
