package docdb_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

// formats lists every built-in format; behavioral tests run once per format.
var formats = []docdb.Format{docdb.FormatJSON, docdb.FormatYAML}

func openTestDB(t *testing.T, format docdb.Format, mutate ...func(*docdb.Options)) *docdb.DB {
	t.Helper()

	opts := docdb.Options{
		Format:  format,
		WorkDir: t.TempDir(),
	}

	for _, fn := range mutate {
		fn(&opts)
	}

	db, err := docdb.Open(opts)
	require.NoError(t, err, "Open")

	return db
}

func mustSet(t *testing.T, db *docdb.DB, key string, value any) {
	t.Helper()

	_, err := db.Set(key, docdb.MustFromAny(value))
	require.NoError(t, err, "Set(%q)", key)
}

func mustGet(t *testing.T, db *docdb.DB, key string) docdb.Node {
	t.Helper()

	val, ok, err := db.Get(key)
	require.NoError(t, err, "Get(%q)", key)
	require.True(t, ok, "Get(%q) should find a value", key)

	return val
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "ReadFile")

	return string(data)
}

func ids(entries []docdb.Entry) []string {
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.ID
	}

	return out
}
