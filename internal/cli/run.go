package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/calvinalkan/docdb/internal/config"
	"github.com/calvinalkan/docdb/pkg/docdb"
)

// Errors returned while parsing global flags.
var (
	ErrFlagRequiresArg = errors.New("flag requires an argument")
	ErrUnknownFlag     = errors.New("unknown flag")
	ErrFlagInvalid     = errors.New("invalid flag value")
)

const (
	consumedNone = 0
	consumedOne  = 1
	consumedTwo  = 2
	helpFlag     = "--help"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. A signal on it cancels the context passed to commands.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if len(args) < 2 {
		printUsage(out)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		o := NewIO(out, errOut)
		o.PrintError(err)
		printUsage(errOut)

		return 1
	}

	if len(flags.remaining) == 0 || flags.remaining[0] == "-h" || flags.remaining[0] == helpFlag {
		printUsage(out)

		return 0
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: flags.workDir,
		ConfigPath:      flags.configPath,
		Env:             env,
		DBPath:          flags.dbPath,
		Format:          docdb.Format(flags.format),
		MaxDataSize:     flags.maxDataSize,
		HasMaxDataSize:  flags.hasMaxDataSize,
	})
	if err != nil {
		o := NewIO(out, errOut)
		o.PrintError(err)

		return 1
	}

	s := &session{cfg: cfg, env: env, stdin: stdin}
	if flags.verbose {
		s.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	o := NewIO(out, errOut)

	name := flags.remaining[0]

	cmd := findCommand(allCommands(s), name)
	if cmd == nil {
		o.PrintError(fmt.Errorf("unknown command: %s", name))
		printUsage(errOut)

		return 1
	}

	if code := cmd.Run(ctx, o, flags.remaining[1:]); code != 0 {
		return code
	}

	return o.Finish()
}

// allCommands returns every top-level command, in help order.
func allCommands(s *session) []*Command {
	return append(dbCommands(s), ShellCmd(s), PrintConfigCmd(s))
}

// dbCommands returns the commands that operate on the database. The shell
// dispatches to the same set.
func dbCommands(s *session) []*Command {
	return []*Command{
		GetCmd(s),
		SetCmd(s),
		DeleteCmd(s),
		HasCmd(s),
		TypeCmd(s),
		AllCmd(s),
		KeysCmd(s),
		ValuesCmd(s),
		MathCmd(s),
		AddCmd(s),
		SubCmd(s),
		PushCmd(s),
		PullCmd(s),
		FilterCmd(s),
		FindDeleteCmd(s),
		IncludesCmd(s),
		StartsWithCmd(s),
		ClearCmd(s),
		DestroyCmd(s),
		InfoCmd(s),
		ExportCmd(s),
	}
}

func findCommand(cmds []*Command, name string) *Command {
	for _, c := range cmds {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

type globalFlags struct {
	workDir        string
	configPath     string
	dbPath         string
	format         string
	maxDataSize    int
	hasMaxDataSize bool
	verbose        bool
	remaining      []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	switch {
	case arg == "-h" || arg == helpFlag:
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	case arg == "-v" || arg == "--verbose":
		flags.verbose = true

		return consumedOne, nil
	}

	name, value, consumed, ok := flagValue(args, idx)
	if !ok {
		if strings.HasPrefix(arg, "-") && arg != "-" {
			return consumedNone, fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
		}

		// Not a flag
		return consumedNone, nil
	}

	if consumed == consumedNone {
		return consumedNone, fmt.Errorf("%w: %s", ErrFlagRequiresArg, name)
	}

	switch name {
	case "--cwd":
		flags.workDir = value
	case "--config":
		flags.configPath = value
	case "--db":
		flags.dbPath = value
	case "--format":
		flags.format = value
	case "--max-size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return consumedNone, fmt.Errorf("%w: --max-size must be a non-negative integer (got %q)", ErrFlagInvalid, value)
		}

		flags.maxDataSize = n
		flags.hasMaxDataSize = true
	}

	return consumed, nil
}

// valueFlags maps every spelling of a global flag that takes a value to its
// long name.
var valueFlags = map[string]string{
	"-C":         "--cwd",
	"--cwd":      "--cwd",
	"-c":         "--config",
	"--config":   "--config",
	"--db":       "--db",
	"--format":   "--format",
	"--max-size": "--max-size",
}

// flagValue recognizes "--name value", "--name=value" and "-Cvalue".
// consumed is 0 when the flag is known but its value is missing.
func flagValue(args []string, idx int) (name, value string, consumed int, ok bool) {
	arg := args[idx]

	if long, known := valueFlags[arg]; known {
		if idx+1 >= len(args) {
			return long, "", consumedNone, true
		}

		return long, args[idx+1], consumedTwo, true
	}

	if before, after, found := strings.Cut(arg, "="); found && strings.HasPrefix(before, "--") {
		if long, known := valueFlags[before]; known {
			return long, after, consumedOne, true
		}
	}

	if after, found := strings.CutPrefix(arg, "-C"); found && after != "" {
		return "--cwd", after, consumedOne, true
	}

	return "", "", consumedNone, false
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer) {
	fprintln(w, `docdb - file-backed JSON/YAML key-value store

Usage: docdb [global flags] <command> [args]

Global flags:
  -C, --cwd <dir>         Run as if started in <dir>
  -c, --config <file>     Use specified config file
      --db <path>         Database path (default databases/db.<ext>)
      --format <format>   Storage format: json or yaml (default json)
      --max-size <n>      Refuse writes after n successful sets (0 = unlimited)
  -v, --verbose           Log storage activity to stderr
  -h, --help              Show help

Commands:`)

	for _, cmd := range allCommands(&session{}) {
		fprintln(w, cmd.HelpLine())
	}

	fprintln(w, `
Keys are dotted paths ("user.address.city"); numeric segments index arrays.
Run 'docdb <command> --help' for command details.`)
}
