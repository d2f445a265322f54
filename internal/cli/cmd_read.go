package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

var errKeyNotFound = errors.New("key not found")

// GetCmd returns the get command.
func GetCmd(s *session) *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.String("default", "", "Print this value instead of failing when the key is missing")

	return &Command{
		Flags: fs,
		Usage: "get <key> [flags]",
		Short: "Print the value at a key",
		Long: `Print the value at a dotted key.

Strings are printed raw, objects and arrays as indented JSON, other values as JSON.

Examples:
  docdb get user.name
  docdb get tags.0
  docdb get missing --default 0`,
		Args: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			val, ok, err := db.Get(args[0])
			if err != nil {
				return err
			}

			if !ok {
				if !fs.Changed("default") {
					return fmt.Errorf("%w: %s", errKeyNotFound, args[0])
				}

				def, _ := fs.GetString("default")
				val = parseValue(def)
			}

			o.Println(formatNode(val))

			return nil
		},
	}
}

// HasCmd returns the has command.
func HasCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("has", flag.ContinueOnError),
		Usage: "has <key>",
		Short: "Print whether a top-level key exists",
		Long: `Print true or false depending on whether a top-level key exists.

The key is matched literally: "a.b" looks for a top-level key named "a.b",
not for field b inside a.`,
		Args: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			ok, err := db.Has(args[0])
			if err != nil {
				return err
			}

			o.Println(ok)

			return nil
		},
	}
}

// TypeCmd returns the type command.
func TypeCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("type", flag.ContinueOnError),
		Usage: "type <key>",
		Short: "Print the type of the value at a key",
		Long:  "Print one of string, number, boolean, object, array, null or undefined.",
		Args:  1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			tag, err := db.Type(args[0])
			if err != nil {
				return err
			}

			o.Println(tag)

			return nil
		},
	}
}

// AllCmd returns the all command.
func AllCmd(s *session) *Command {
	fs := flag.NewFlagSet("all", flag.ContinueOnError)
	fs.Int("limit", 0, "Maximum entries to show (0 = no limit)")
	fs.Bool("json", false, "Output as one JSON object")

	return &Command{
		Flags: fs,
		Usage: "all [flags]",
		Short: "List top-level entries in document order",
		Long: `List top-level entries in document order, one "<key><TAB><json>" per line.

Examples:
  docdb all
  docdb all --limit 10
  docdb all --json`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			limit, _ := fs.GetInt("limit")
			asJSON, _ := fs.GetBool("json")

			if limit < 0 {
				return fmt.Errorf("%w: --limit cannot be negative", ErrFlagInvalid)
			}

			db, err := s.open()
			if err != nil {
				return err
			}

			entries, err := db.All(limit)
			if err != nil {
				return err
			}

			printEntries(o, entries, asJSON)

			return nil
		},
	}
}

// KeysCmd returns the keys command.
func KeysCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("keys", flag.ContinueOnError),
		Usage: "keys",
		Short: "List top-level keys",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			keys, err := db.KeyArray()
			if err != nil {
				return err
			}

			for _, k := range keys {
				o.Println(k)
			}

			return nil
		},
	}
}

// ValuesCmd returns the values command.
func ValuesCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("values", flag.ContinueOnError),
		Usage: "values",
		Short: "List top-level values as compact JSON",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			values, err := db.ValueArray()
			if err != nil {
				return err
			}

			for _, v := range values {
				o.Println(v.String())
			}

			return nil
		},
	}
}

// InfoCmd returns the info command.
func InfoCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("info", flag.ContinueOnError),
		Usage: "info",
		Short: "Show database file, format and counters",
		Long: `Show the backing file, format, write counter, limit and library version.

The size counter counts successful sets minus deletes made through this
process; it starts at 0 for every invocation outside the shell.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}

			info := db.Info()

			o.Println("path=" + info.Path)
			o.Println("format=" + string(info.Format))
			o.Printf("size=%d\n", info.Size)
			o.Printf("max_data_size=%d\n", info.MaxDataSize)
			o.Println("version=" + info.Version)

			return nil
		},
	}
}

func printEntries(o *IO, entries []docdb.Entry, asJSON bool) {
	if asJSON {
		obj := docdb.NewObject()
		for _, e := range entries {
			obj.Set(e.ID, e.Data)
		}

		o.Println(formatNode(docdb.ObjectNode(obj)))

		return
	}

	for _, e := range entries {
		o.Printf("%s\t%s\n", e.ID, e.Data.String())
	}
}
