package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

// SetCmd returns the set command.
func SetCmd(s *session) *Command {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.Bool("string", false, "Store the value as a string even if it parses as JSON")

	return &Command{
		Flags: fs,
		Usage: "set <key> <value> [flags]",
		Short: "Store a value at a key",
		Long: `Store a value at a dotted key, creating intermediate objects.

The value is parsed as JSON; anything that is not valid JSON is stored as a
string. Empty strings and null are rejected.

Examples:
  docdb set user.name ada
  docdb set user.age 36
  docdb set tags '["go","sql"]'
  docdb set zip 01234 --string`,
		Args: 2,
		Exec: func(_ context.Context, o *IO, args []string) error {
			asString, _ := fs.GetBool("string")

			db, err := s.open()
			if err != nil {
				return err
			}

			val := parseValue(args[1])
			if asString {
				val = docdb.String(args[1])
			}

			stored, err := db.Set(args[0], val)
			if err != nil {
				return err
			}

			o.Println(formatNode(stored))

			return nil
		},
	}
}

// DeleteCmd returns the delete command.
func DeleteCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete", flag.ContinueOnError),
		Usage: "delete <key>",
		Short: "Remove the value at a key",
		Long:  "Remove the value at a dotted key. Array elements are spliced out.",
		Args:  1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			_, existed, err := db.Get(args[0])
			if err != nil {
				return err
			}

			err = db.Delete(args[0])
			if err != nil {
				return err
			}

			if !existed {
				o.Warn(fmt.Sprintf("key %q was not set", args[0]))
			}

			return nil
		},
	}
}

// ClearCmd returns the clear command.
func ClearCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("clear", flag.ContinueOnError),
		Usage: "clear",
		Short: "Remove every key",
		Long:  "Replace the document with an empty object and reset the size counter.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			err = db.DeleteAll()
			if err != nil {
				return err
			}

			o.Println("cleared", db.Path())

			return nil
		},
	}
}

// DestroyCmd returns the destroy command.
func DestroyCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("destroy", flag.ContinueOnError),
		Usage: "destroy",
		Short: "Delete the database file",
		Long: `Delete the backing file. Directories created for it are kept.

The next command recreates an empty database at the same path.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			err = db.Destroy()
			if err != nil {
				return err
			}

			s.forget()
			o.Println("destroyed", db.Path())

			return nil
		},
	}
}
