package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// ShellCmd returns the shell command.
func ShellCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Run commands interactively",
		Long: `Start an interactive shell on the database. Every command is available
without the "docdb" prefix and global flags; the database stays open, so the
size counter and --max-size apply across commands.

Arguments can be quoted with ' or ". Type 'help' for commands and 'exit' to
leave. On a terminal, history is kept in ~/.docdb_history.

Example:
  docdb> set user '{"name": "ada", "tags": ["go"]}'
  docdb> push user.tags sql
  docdb> get user.tags.1`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sh := newShell(s, o)
			defer sh.close()

			return sh.run(ctx)
		},
	}
}

// shell reads lines from a liner prompt on a terminal, or plainly from stdin
// otherwise (pipes, tests).
type shell struct {
	s *session
	o *IO

	line    *liner.State
	scanner *bufio.Scanner
}

func newShell(s *session, o *IO) *shell {
	sh := &shell{s: s, o: o}

	if isTerminal(s.stdin) {
		sh.line = liner.NewLiner()
		sh.line.SetCtrlCAborts(true)
		sh.line.SetCompleter(sh.completer)

		if f, err := os.Open(sh.historyFile()); err == nil {
			_, _ = sh.line.ReadHistory(f)
			_ = f.Close()
		}

		return sh
	}

	stdin := s.stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	sh.scanner = bufio.NewScanner(stdin)

	return sh
}

func (sh *shell) run(ctx context.Context) error {
	if sh.line != nil {
		sh.o.Println("docdb shell - type 'help' for commands, 'exit' to quit")
	}

	for ctx.Err() == nil {
		text, err := sh.readLine()
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if sh.line != nil {
			sh.line.AppendHistory(text)
		}

		fields, err := splitLine(text)
		if err != nil {
			sh.o.PrintError(err)

			continue
		}

		switch name := fields[0]; name {
		case "exit", "quit", "q":
			return nil
		case "help", "?":
			sh.printHelp()
		default:
			cmd := findCommand(dbCommands(sh.s), name)
			if cmd == nil {
				sh.o.PrintError(fmt.Errorf("unknown command: %s (type 'help' for commands)", name))

				continue
			}

			// Fresh IO per command so warnings print right after it.
			cmdIO := NewIO(sh.o.out, sh.o.errOut)
			if cmd.Run(ctx, cmdIO, fields[1:]) == 0 {
				cmdIO.Finish()
			}
		}
	}

	return nil
}

func (sh *shell) readLine() (string, error) {
	if sh.line != nil {
		return sh.line.Prompt("docdb> ")
	}

	if !sh.scanner.Scan() {
		if err := sh.scanner.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return sh.scanner.Text(), nil
}

func (sh *shell) close() {
	if sh.line == nil {
		return
	}

	if path := sh.historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = sh.line.WriteHistory(f)
			_ = f.Close()
		}
	}

	_ = sh.line.Close()
}

// historyFile returns the path to the history file, or "" without a home.
func (sh *shell) historyFile() string {
	home := sh.s.env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".docdb_history")
}

func (sh *shell) printHelp() {
	sh.o.Println("Commands:")

	for _, cmd := range dbCommands(sh.s) {
		sh.o.Println(cmd.HelpLine())
	}

	sh.o.Printf("  %-30s %s\n", "help", "Show this help")
	sh.o.Printf("  %-30s %s\n", "exit / quit / q", "Leave the shell")
}

// completer provides tab completion for command names.
func (sh *shell) completer(line string) []string {
	names := []string{"help", "exit", "quit"}
	for _, cmd := range dbCommands(sh.s) {
		names = append(names, cmd.Name())
	}

	var completions []string

	for _, name := range names {
		if strings.HasPrefix(name, line) {
			completions = append(completions, name)
		}
	}

	return completions
}

// splitLine splits a shell line on whitespace. Single or double quotes group
// text (including spaces and the other quote character) into one argument.
func splitLine(line string) ([]string, error) {
	var (
		fields  []string
		cur     strings.Builder
		quote   rune
		inField bool
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inField = true
		case unicode.IsSpace(r):
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()

				inField = false
			}
		default:
			cur.WriteRune(r)

			inField = true
		}
	}

	if quote != 0 {
		return nil, errUnterminatedQuote
	}

	if inField {
		fields = append(fields, cur.String())
	}

	return fields, nil
}
