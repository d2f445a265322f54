package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

var errWrongArgs = errors.New("wrong number of arguments")

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "docdb" in help.
	// Includes the command name and arguments/flags.
	// Examples: "get <key>", "all [flags]", "pull <key> <expr> [flags]"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Args is the exact number of positional arguments Exec expects.
	// Negative means any number.
	Args int

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-30s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "docdb <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: docdb", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	if c.Flags == nil {
		c.Flags = flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	}

	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}

		o.PrintError(err)
		o.ErrPrintln("usage: docdb", c.Usage)

		return 1
	}

	rest := c.Flags.Args()
	if c.Args >= 0 && len(rest) != c.Args {
		o.PrintError(fmt.Errorf("%w: want %d, got %d", errWrongArgs, c.Args, len(rest)))
		o.ErrPrintln("usage: docdb", c.Usage)

		return 1
	}

	if err := c.Exec(ctx, o, rest); err != nil {
		o.PrintError(err)
		return 1
	}

	return 0
}
