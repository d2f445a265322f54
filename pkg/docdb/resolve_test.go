package docdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/docdb/pkg/docdb"
	"github.com/calvinalkan/docdb/pkg/fs"
)

func Test_NormalizePath_Produces_Rooted_Path_With_Extension(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		logical string
		ext     string
		want    string
	}{
		{"plain", "databases/db.json", ".json", "/databases/db.json"},
		{"missing ext", "databases/users", ".json", "/databases/users.json"},
		{"dot slash", "./data/app", ".yml", "/data/app.yml"},
		{"leading slash", "/data/app.json", ".json", "/data/app.json"},
		{"trailing slash", "data/", ".json", "/data/db.json"},
		{"bare name", "store", ".yml", "/store.yml"},
		{"long yaml ext", "data/app.yaml", ".yml", "/data/app.yaml"},
		{"yaml ext for json", "data/app.yaml", ".json", "/data/app.yaml.json"},
		{"workdir prefix", "/srv/app/data/x.json", ".json", "/data/x.json"},
		{"similar prefix kept", "/srv/apple/x.json", ".json", "/srv/apple/x.json"},
	}

	for _, tc := range cases {
		if got, want := docdb.NormalizePath("/srv/app", tc.logical, tc.ext), tc.want; got != want {
			t.Fatalf("%s: NormalizePath(%q)=%q, want=%q", tc.name, tc.logical, got, want)
		}
	}
}

func Test_ResolvePath_Creates_Directories_And_Empty_Document_When_Missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := docdb.ResolvePath(fs.NewReal(), dir, "a/b/c/store", docdb.JSONCodec{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "a", "b", "c", "store.json"), path)
	assert.Equal(t, "{}", readFile(t, path))

	info, err := os.Stat(filepath.Join(dir, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func Test_ResolvePath_Is_Idempotent_When_Called_Twice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := fs.NewReal()

	first, err := docdb.ResolvePath(fsys, dir, "data/db.yml", docdb.YAMLCodec{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(first, []byte("kept: true\n"), 0o644))

	second, err := docdb.ResolvePath(fsys, dir, "./data/db", docdb.YAMLCodec{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "kept: true\n", readFile(t, second), "existing document must not be overwritten")
}

func Test_ResolvePath_Returns_ErrIO_When_Mkdir_Fails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	chaos := fs.NewChaos(fs.NewReal(), 12345, fs.ChaosConfig{MkdirFailRate: 1.0})

	_, err := docdb.ResolvePath(chaos, dir, "nested/db.json", docdb.JSONCodec{})

	require.ErrorIs(t, err, docdb.ErrIO)
	assert.True(t, fs.IsChaosErr(err))

	_, statErr := os.Stat(filepath.Join(dir, "nested"))
	assert.True(t, os.IsNotExist(statErr))
}
