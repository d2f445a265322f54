package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/docdb/internal/query"
	"github.com/calvinalkan/docdb/pkg/docdb"
)

// PushCmd returns the push command.
func PushCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("push", flag.ContinueOnError),
		Usage: "push <key> <value>",
		Short: "Append a value to the array at a key",
		Long: `Append a value to the array at a key.

A missing key, or one holding something other than an array, is replaced by a
one-element array. The value is parsed like in set.`,
		Args: 2,
		Exec: func(_ context.Context, o *IO, args []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			arr, err := db.Push(args[0], parseValue(args[1]))
			if err != nil {
				return err
			}

			o.Println(formatNode(arr))

			return nil
		},
	}
}

// PullCmd returns the pull command.
func PullCmd(s *session) *Command {
	fs := flag.NewFlagSet("pull", flag.ContinueOnError)
	fs.Bool("all", false, "Remove every matching element instead of the first")

	return &Command{
		Flags: fs,
		Usage: "pull <key> <expr> [flags]",
		Short: "Remove array elements matching an expression",
		Long: `Remove the first (or with --all every) element of the array at key for which
expr is true. expr sees "value" (the element) and "index" (its position).

Examples:
  docdb pull tags 'value == "old"'
  docdb pull scores 'value < 10' --all
  docdb pull users 'value.name == "ada"'`,
		Args: 2,
		Exec: func(_ context.Context, o *IO, args []string) error {
			multiple, _ := fs.GetBool("all")

			prog, err := query.Compile(args[1])
			if err != nil {
				return err
			}

			db, err := s.open()
			if err != nil {
				return err
			}

			err = checkElements(db, args[0], prog)
			if err != nil {
				return err
			}

			arr, ok, err := db.Pull(args[0], prog.MatchElement, multiple)
			if err != nil {
				return err
			}

			if !ok {
				o.Warn(fmt.Sprintf("key %q is not set, nothing to pull", args[0]))

				return nil
			}

			o.Println(formatNode(arr))

			return prog.Err()
		},
	}
}

// checkElements evaluates prog against every element of the array at key so
// that expression errors surface before anything is written.
func checkElements(db *docdb.DB, key string, prog *query.Program) error {
	val, _, err := db.Get(key)
	if err != nil {
		return err
	}

	items, ok := val.AsArray()
	if !ok {
		return nil
	}

	for i, item := range items {
		prog.MatchElement(item, i)
	}

	return prog.Err()
}
