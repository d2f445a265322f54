package cli

import (
	"context"
	"errors"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/docdb/internal/export"
)

var errExportTarget = errors.New("--sqlite is required")

// ExportCmd returns the export command.
func ExportCmd(s *session) *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.String("sqlite", "", "Write entries to this SQLite database file")

	return &Command{
		Flags: fs,
		Usage: "export --sqlite <file>",
		Short: "Copy top-level entries into a SQLite table",
		Long: `Upsert every top-level entry into the "entries" table (id, data) of a SQLite
database, creating the file and table when missing. data holds the value as
JSON, so it can be queried with SQLite's JSON functions.

Examples:
  docdb export --sqlite backup.sqlite
  sqlite3 backup.sqlite "SELECT id FROM entries WHERE json_extract(data, '$.age') > 30"`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			target, _ := fs.GetString("sqlite")
			if target == "" {
				return errExportTarget
			}

			if !filepath.IsAbs(target) {
				target = filepath.Join(s.cfg.WorkDir, target)
			}

			db, err := s.open()
			if err != nil {
				return err
			}

			entries, err := db.All(0)
			if err != nil {
				return err
			}

			n, err := export.SQLite(ctx, target, entries)
			if err != nil {
				return err
			}

			o.Printf("exported %d entries to %s\n", n, target)

			return nil
		},
	}
}
