package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/derekparker/trie"
	"github.com/go-delve/liner"

	"dolphinmem/service"
)

const (
	prompt             = "(dmem) "
	dmemDir            = ".dolphinmem"
	historyFile string = ".dmem_history"
)

type Term struct {
	client      service.Client
	prompt      string
	line        *liner.State
	cmds        *Commands
	historyFile *os.File
	stdout      *transcriptWriter
}

func New(client service.Client) *Term {
	t := &Term{
		client: client,
		line:   liner.NewLiner(),
		prompt: prompt,
		stdout: newTranscriptWriter(os.Stdout),
		cmds:   NewCommands(client),
	}

	return t
}

func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		fmt.Fprintf(os.Stdout, "received signal, type 'exit' to quit\n")
	}
}

func (t *Term) Run() error {
	defer t.Close()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)
	go t.sigintGuard(ch)

	t.line.SetCompleter(t.completer())

	if err := t.openHistory(); err != nil {
		fmt.Printf("Unable to open history file: %v. History will not be saved for this session.\n", err)
	}

	fmt.Println("Type 'help' for list of commands.")

	for {
		cmd, err := t.promptForInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stdout, "exit")
				return t.handleExit()
			}
			return fmt.Errorf("prompt for input: %w", err)
		}
		t.stdout.Echo(t.prompt + cmd + "\n")

		if strings.TrimSpace(cmd) == "" {
			continue
		}

		if err = t.cmds.Call(cmd, t); err != nil {
			var exitErr ExitRequestError
			if errors.As(err, &exitErr) {
				return t.handleExit()
			}

			t.stdout.pw.Reset()
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
			continue
		}

		t.stdout.Flush()
	}
}

// completer offers command aliases by prefix.
func (t *Term) completer() liner.Completer {
	cmds := trie.New()
	for _, cmd := range t.cmds.cmds {
		for _, alias := range cmd.aliases {
			cmds.Add(alias, nil)
		}
	}

	return func(line string) []string {
		if strings.Contains(line, " ") {
			return nil
		}
		return cmds.PrefixSearch(line)
	}
}

func (t *Term) openHistory() error {
	fullHistory := filepath.Join(getUserHomeDir(), dmemDir, historyFile)
	if err := os.MkdirAll(filepath.Dir(fullHistory), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	f, err := os.OpenFile(fullHistory, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}

	if _, err := t.line.ReadHistory(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("read history %s: %w", fullHistory, err)
	}
	t.historyFile = f
	return nil
}

func (t *Term) Close() {
	if t.line != nil {
		_ = t.line.Close()
	}
	if err := t.stdout.CloseTranscript(); err != nil {
		fmt.Fprintf(os.Stderr, "error closing transcript file: %v\n", err)
	}
}

func getUserHomeDir() string {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return userHomeDir
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit() error {
	if t.historyFile == nil {
		return nil
	}

	if err := t.historyFile.Truncate(0); err != nil {
		return err
	}
	if _, err := t.historyFile.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := t.line.WriteHistory(t.historyFile); err != nil {
		fmt.Println("readline history error:", err)
		return err
	}
	if err := t.historyFile.Close(); err != nil {
		fmt.Printf("error closing history file: %s\n", err)
		return err
	}
	t.historyFile = nil

	return nil
}

// RedirectTo redirects the output of this terminal to the specified writer.
func (t *Term) RedirectTo(w io.Writer) {
	t.stdout.pw.w = w
}
