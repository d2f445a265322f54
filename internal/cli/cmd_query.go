package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/docdb/internal/query"
	"github.com/calvinalkan/docdb/pkg/docdb"
)

const exprHelp = `expr is an expr-lang expression evaluated per top-level entry. It sees
"ID" (the key) and "data" (the value) and must return a bool.`

// FilterCmd returns the filter command.
func FilterCmd(s *session) *Command {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	fs.Bool("json", false, "Output as one JSON object")

	return &Command{
		Flags: fs,
		Usage: "filter <expr> [flags]",
		Short: "List entries matching an expression",
		Long: "List top-level entries for which expr is true.\n\n" + exprHelp + `

Examples:
  docdb filter 'data.age >= 18'
  docdb filter 'ID startsWith "user_" && data.active'`,
		Args: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			asJSON, _ := fs.GetBool("json")

			prog, err := query.Compile(args[0])
			if err != nil {
				return err
			}

			db, err := s.open()
			if err != nil {
				return err
			}

			entries, err := db.Filter(prog.MatchEntry)
			if err != nil {
				return err
			}

			if err := prog.Err(); err != nil {
				return err
			}

			printEntries(o, entries, asJSON)

			return nil
		},
	}
}

// FindDeleteCmd returns the find-delete command.
func FindDeleteCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("find-delete", flag.ContinueOnError),
		Usage: "find-delete <expr>",
		Short: "Delete entries matching an expression",
		Long: "Delete every top-level entry for which expr is true and print how many\nwere deleted.\n\n" + exprHelp + `

Examples:
  docdb find-delete 'data.expires < 1700000000'`,
		Args: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			prog, err := query.Compile(args[0])
			if err != nil {
				return err
			}

			db, err := s.open()
			if err != nil {
				return err
			}

			// Dry run first: a failing expression must not delete anything.
			_, err = db.Filter(prog.MatchEntry)
			if err != nil {
				return err
			}

			if err := prog.Err(); err != nil {
				return err
			}

			n, err := db.FindAndDelete(prog.MatchEntry)
			if err != nil {
				return err
			}

			o.Printf("deleted %d\n", n)

			return prog.Err()
		},
	}
}

// IncludesCmd returns the includes command.
func IncludesCmd(s *session) *Command {
	return searchCmd(s, "includes <text>", "List entries whose key contains text",
		func(db *docdb.DB, text string) ([]docdb.Entry, error) { return db.Includes(text) })
}

// StartsWithCmd returns the starts-with command.
func StartsWithCmd(s *session) *Command {
	return searchCmd(s, "starts-with <prefix>", "List entries whose key starts with prefix",
		func(db *docdb.DB, prefix string) ([]docdb.Entry, error) { return db.StartsWith(prefix) })
}

func searchCmd(s *session, usage, short string, search func(*docdb.DB, string) ([]docdb.Entry, error)) *Command {
	fs := flag.NewFlagSet(usage, flag.ContinueOnError)
	fs.Bool("json", false, "Output as one JSON object")

	return &Command{
		Flags: fs,
		Usage: usage,
		Short: short,
		Args:  1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			asJSON, _ := fs.GetBool("json")

			db, err := s.open()
			if err != nil {
				return err
			}

			entries, err := search(db, args[0])
			if err != nil {
				return err
			}

			printEntries(o, entries, asJSON)

			return nil
		},
	}
}
