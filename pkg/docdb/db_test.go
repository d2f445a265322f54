package docdb_test

import (
	"bytes"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/docdb/pkg/docdb"
	"github.com/calvinalkan/docdb/pkg/fs"
)

func Test_Open_Creates_Default_Database_File_When_Path_Is_Empty(t *testing.T) {
	t.Parallel()

	cases := map[docdb.Format]struct {
		file    string
		content string
	}{
		docdb.FormatJSON: {"db.json", "{}"},
		docdb.FormatYAML: {"db.yml", "{}\n"},
	}

	for format, want := range cases {
		dir := t.TempDir()

		db, err := docdb.Open(docdb.Options{Format: format, WorkDir: dir})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "databases", want.file), db.Path())
		assert.Equal(t, want.content, readFile(t, db.Path()))
	}
}

func Test_Open_Returns_ErrInvalidOption_When_Options_Are_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]docdb.Options{
		"negative max size": {MaxDataSize: -1},
		"unknown format":    {Format: "toml"},
	}

	for name, opts := range cases {
		opts.WorkDir = t.TempDir()

		_, err := docdb.Open(opts)
		require.ErrorIs(t, err, docdb.ErrInvalidOption, name)

		var dbErr *docdb.Error
		require.ErrorAs(t, err, &dbErr, name)
		assert.Equal(t, "open", dbErr.Op, name)
	}
}

func Test_Open_Reuses_Existing_File_When_Opened_Twice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := docdb.Open(docdb.Options{WorkDir: dir, Path: "data/app"})
	require.NoError(t, err)

	mustSet(t, first, "kept", "yes")

	second, err := docdb.Open(docdb.Options{WorkDir: dir, Path: "./data/app.json"})
	require.NoError(t, err)

	assert.Equal(t, first.Path(), second.Path())
	assert.Equal(t, `"yes"`, mustGet(t, second, "kept").String())
}

func Test_DB_Set_Then_Get_Returns_Value_When_Path_Is_Nested(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			db := openTestDB(t, format)

			values := map[string]any{
				"name":          "ada",
				"user.age":      36,
				"user.tags":     []any{"math", "poetry"},
				"deep.a.b.c.d":  true,
				"ratio":         0.5,
				"settings.zero": 0,
			}

			for key, val := range values {
				mustSet(t, db, key, val)
			}

			for key, val := range values {
				got := mustGet(t, db, key)
				assert.True(t, got.Equal(docdb.MustFromAny(val)), "Get(%q)=%s", key, got)
			}
		})
	}
}

func Test_DB_Set_Returns_Stored_Value(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	got, err := db.Set("k", docdb.Number(7))
	require.NoError(t, err)

	assert.True(t, got.Equal(docdb.Number(7)))
}

func Test_DB_Set_Overwrites_Scalar_Intermediate_With_Object(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		db := openTestDB(t, format)

		mustSet(t, db, "set", 10)
		mustSet(t, db, "set.prop", 10)

		assert.Equal(t, `{"prop":10}`, mustGet(t, db, "set").String(), format)
	}
}

func Test_DB_Set_Rejects_Value_When_Null_Or_Empty_String(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)
	before := readFile(t, db.Path())

	for _, val := range []docdb.Node{docdb.Null(), docdb.String("")} {
		_, err := db.Set("k", val)
		require.ErrorIs(t, err, docdb.ErrInvalidValue)
	}

	assert.Equal(t, before, readFile(t, db.Path()))
	assert.Equal(t, 0, db.Size())
}

func Test_DB_Returns_ErrInvalidKey_When_Key_Is_Empty(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	_, err := db.Set("", docdb.Number(1))
	require.ErrorIs(t, err, docdb.ErrInvalidKey)

	_, _, err = db.Get("")
	require.ErrorIs(t, err, docdb.ErrInvalidKey)

	require.ErrorIs(t, db.Delete(""), docdb.ErrInvalidKey)

	_, err = db.Exists("")
	require.ErrorIs(t, err, docdb.ErrInvalidKey)
}

func Test_DB_Error_Message_Includes_Op_Key_And_File(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	_, err := db.Set("user.name", docdb.Null())
	require.Error(t, err)

	want := "set: invalid value: value must not be null (key=user.name file=" + db.Path() + ")"
	assert.Equal(t, want, err.Error())

	var dbErr *docdb.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "set", dbErr.Op)
	assert.Equal(t, "user.name", dbErr.Key)
	assert.Equal(t, db.Path(), dbErr.File)
}

func Test_DB_Set_Returns_ErrInvalidKey_When_Segment_Addresses_Array_By_Name(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	mustSet(t, db, "list", []any{1, 2})

	_, err := db.Set("list.name", docdb.String("x"))
	require.ErrorIs(t, err, docdb.ErrInvalidKey)

	assert.Equal(t, `[1,2]`, mustGet(t, db, "list").String())
}

func Test_DB_Treats_Path_As_Absent_When_Segment_Does_Not_Index_Array(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	mustSet(t, db, "arr", []any{1, 2})

	for _, key := range []string{"arr.foo", "arr.5000000", "arr.01", "arr.-1"} {
		got, err := db.GetOr(key, docdb.String("dflt"))
		require.NoError(t, err, key)
		assert.Equal(t, `"dflt"`, got.String(), key)

		tag, err := db.Type(key)
		require.NoError(t, err, key)
		assert.Equal(t, docdb.TypeUndefined, tag, key)
	}

	tag, err := db.Type("arr.name")
	require.NoError(t, err)
	assert.Equal(t, docdb.TypeUndefined, tag)

	require.NoError(t, db.Delete("arr.foo"))
	require.NoError(t, db.Delete("arr.5000000"))

	assert.Equal(t, `[1,2]`, mustGet(t, db, "arr").String())
}

func Test_DB_Set_Returns_ErrInvalidValue_When_Number_Is_Not_Finite(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	values := []docdb.Node{
		docdb.Number(math.NaN()),
		docdb.Number(math.Inf(1)),
		docdb.Number(math.Inf(-1)),
		docdb.Array(docdb.Number(1), docdb.Number(math.NaN())),
		docdb.Array(docdb.Array(docdb.Number(math.Inf(1)))),
	}

	for _, value := range values {
		_, err := db.Set("n", value)
		require.ErrorIs(t, err, docdb.ErrInvalidValue, value.String())
	}

	inner := docdb.NewObject()
	inner.Set("x", docdb.Number(math.Inf(-1)))

	_, err := db.Set("o", docdb.ObjectNode(inner))
	require.ErrorIs(t, err, docdb.ErrInvalidValue)

	assert.Equal(t, "{}", readFile(t, db.Path()))
}

func Test_DB_Set_Addresses_Array_Elements_By_Index(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		db := openTestDB(t, format)

		mustSet(t, db, "list", []any{"a", "b"})
		mustSet(t, db, "list.1", "B")

		assert.Equal(t, `["a","B"]`, mustGet(t, db, "list").String(), format)
		assert.Equal(t, `"a"`, mustGet(t, db, "list.0").String(), format)
	}
}

func Test_DB_Set_Returns_ErrLimitExceeded_When_Max_Data_Size_Reached(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		db := openTestDB(t, format, func(o *docdb.Options) { o.MaxDataSize = 3 })

		mustSet(t, db, "a", 1)
		mustSet(t, db, "b", 2)
		mustSet(t, db, "c", 3)

		before := readFile(t, db.Path())

		_, err := db.Set("d", docdb.Number(4))
		require.ErrorIs(t, err, docdb.ErrLimitExceeded, format)

		assert.Equal(t, before, readFile(t, db.Path()), "%s: file must be unchanged", format)
		assert.Equal(t, 3, db.Size())
	}
}

func Test_DB_Size_Counts_Writes_Not_Keys(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	mustSet(t, db, "a", 1)
	mustSet(t, db, "a", 2)

	assert.Equal(t, 2, db.Size(), "overwriting a key still counts")

	require.NoError(t, db.Delete("a"))
	assert.Equal(t, 1, db.Size())

	require.NoError(t, db.DeleteAll())
	assert.Equal(t, 0, db.Size())

	require.NoError(t, db.Delete("missing"))
	assert.Equal(t, 0, db.Size(), "counter never goes negative")
}

func Test_DB_Set_Does_Not_Write_File_When_SkipPersist(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	_, err := db.Set("k", docdb.Number(1), docdb.SkipPersist())
	require.NoError(t, err)

	assert.Equal(t, "{}", readFile(t, db.Path()))
	assert.Equal(t, 1, db.Size())

	_, ok, err := db.Get("k")
	require.NoError(t, err)
	assert.False(t, ok, "skipped write is not visible to later reads")
}

func Test_DB_Delete_Removes_Value(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		db := openTestDB(t, format)

		mustSet(t, db, "user.name", "ada")
		mustSet(t, db, "user.age", 36)
		mustSet(t, db, "other", true)

		require.NoError(t, db.Delete("user.name"))

		_, ok, err := db.Get("user.name")
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := db.Exists("user")
		require.NoError(t, err)
		assert.True(t, exists, "%s: sibling data keeps top-level key", format)

		require.NoError(t, db.Delete("other"))

		exists, err = db.Exists("other")
		require.NoError(t, err)
		assert.False(t, exists, format)
	}
}

func Test_DB_Delete_Leaves_File_Unchanged_When_SkipPersist(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	mustSet(t, db, "k", 1)
	before := readFile(t, db.Path())

	require.NoError(t, db.Delete("k", docdb.SkipPersist()))

	assert.Equal(t, before, readFile(t, db.Path()))
}

func Test_DB_Exists_Checks_Top_Level_Key_Literally(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	mustSet(t, db, "a.b", 1)

	exists, err := db.Exists("a")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.Has("a.b")
	require.NoError(t, err)
	assert.False(t, exists, "dotted keys are not resolved")
}

func Test_DB_All_Returns_Entries_In_Insertion_Order(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		db := openTestDB(t, format)

		for _, key := range []string{"zeta", "alpha", "mid"} {
			mustSet(t, db, key, key)
		}

		all, err := db.All(0)
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, ids(all), format)

		limited, err := db.All(2)
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha"}, ids(limited), format)

		obj, err := db.ToJSON(0)
		require.NoError(t, err)
		assert.Equal(t, `{"zeta":"zeta","alpha":"alpha","mid":"mid"}`, docdb.ObjectNode(obj).String())
	}
}

func Test_DB_Type_Reports_Tag_Of_Stored_Value(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatYAML)

	mustSet(t, db, "s", "x")
	mustSet(t, db, "n", 1)
	mustSet(t, db, "b", false)
	mustSet(t, db, "o.k", 1)
	mustSet(t, db, "l", []any{1})

	want := map[string]docdb.TypeTag{
		"s":       docdb.TypeString,
		"n":       docdb.TypeNumber,
		"b":       docdb.TypeBoolean,
		"o":       docdb.TypeObject,
		"l":       docdb.TypeArray,
		"missing": docdb.TypeUndefined,
	}

	for key, tag := range want {
		got, err := db.Type(key)
		require.NoError(t, err)
		assert.Equal(t, tag, got, key)
	}
}

func Test_DB_DeleteAll_Empties_Document(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	mustSet(t, db, "a", 1)
	mustSet(t, db, "b", 2)

	require.NoError(t, db.DeleteAll())

	assert.Equal(t, "{}", readFile(t, db.Path()))

	keys, err := db.KeyArray()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func Test_DB_Destroy_Removes_Backing_File(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatYAML)

	require.NoError(t, db.Destroy())

	_, err := os.Stat(db.Path())
	assert.True(t, os.IsNotExist(err))

	_, _, err = db.Get("x")
	require.ErrorIs(t, err, docdb.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_DB_GetOr_Returns_Default_When_Key_Missing(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	got, err := db.GetOr("missing", docdb.String("fallback"))
	require.NoError(t, err)
	assert.Equal(t, `"fallback"`, got.String())
}

func Test_DB_Info_Describes_Handle(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatYAML, func(o *docdb.Options) { o.MaxDataSize = 10 })

	mustSet(t, db, "a", 1)

	info := db.Info()

	assert.Equal(t, docdb.Info{
		Path:        db.Path(),
		Format:      docdb.FormatYAML,
		Size:        1,
		MaxDataSize: 10,
		Version:     docdb.Version,
	}, info)
}

func Test_DB_Reads_Changes_Made_Outside_The_Handle(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	require.NoError(t, os.WriteFile(db.Path(), []byte(`{"external": {"v": 1}}`), 0o644))

	assert.Equal(t, `1`, mustGet(t, db, "external.v").String())
}

func Test_DB_Returns_ErrDecode_When_File_Is_Malformed(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	require.NoError(t, os.WriteFile(db.Path(), []byte(`{"broken": `), 0o644))

	_, _, err := db.Get("broken")
	require.ErrorIs(t, err, docdb.ErrDecode)

	_, err = db.Set("k", docdb.Number(1))
	require.ErrorIs(t, err, docdb.ErrDecode)
	assert.Equal(t, `{"broken": `, readFile(t, db.Path()))
}

func Test_DB_Leaves_File_Unchanged_When_Write_Fails(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		dir := t.TempDir()

		seed, err := docdb.Open(docdb.Options{Format: format, WorkDir: dir})
		require.NoError(t, err)

		mustSet(t, seed, "list", []any{1, 2, 1})
		mustSet(t, seed, "n", 5)

		before := readFile(t, seed.Path())

		chaos := fs.NewChaos(fs.NewReal(), 12345, fs.ChaosConfig{WriteFailRate: 1.0})

		db, err := docdb.Open(docdb.Options{Format: format, WorkDir: dir, FS: chaos})
		require.NoError(t, err)

		_, err = db.Set("k", docdb.Number(1))
		require.ErrorIs(t, err, docdb.ErrIO)
		assert.True(t, fs.IsChaosErr(err))

		require.ErrorIs(t, db.Delete("n"), docdb.ErrIO)

		_, err = db.Add("n", 1)
		require.ErrorIs(t, err, docdb.ErrIO)

		_, err = db.Push("list", docdb.Number(3))
		require.ErrorIs(t, err, docdb.ErrIO)

		_, _, err = db.Pull("list", func(v docdb.Node, _ int) bool { return true }, true)
		require.ErrorIs(t, err, docdb.ErrIO)

		_, err = db.FindAndDelete(func(docdb.Entry) bool { return true })
		require.ErrorIs(t, err, docdb.ErrIO)

		require.ErrorIs(t, db.DeleteAll(), docdb.ErrIO)

		assert.Equal(t, before, readFile(t, seed.Path()), "%s: file must be unchanged", format)
		assert.Equal(t, 0, db.Size(), "failed writes must not count")
		assert.Equal(t, int64(7), chaos.Stats().WriteFails)
	}
}

func Test_DB_Returns_ErrIO_When_Read_Fails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := docdb.Open(docdb.Options{WorkDir: dir})
	require.NoError(t, err)

	chaos := fs.NewChaos(fs.NewReal(), 12345, fs.ChaosConfig{ReadFailRate: 1.0})

	db, err := docdb.Open(docdb.Options{WorkDir: dir, FS: chaos})
	require.NoError(t, err)

	_, err = db.All(0)
	require.ErrorIs(t, err, docdb.ErrIO)
	assert.True(t, fs.IsChaosErr(err))
}

func Test_DB_Serializes_Concurrent_Updates_When_Handle_Is_Shared(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatJSON)

	const workers = 20

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := db.Add("counter", 1)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, `20`, mustGet(t, db, "counter").String())
	assert.Equal(t, workers, db.Size())
}

func Test_DB_Logs_Writes_When_Logger_Is_Set(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db := openTestDB(t, docdb.FormatJSON, func(o *docdb.Options) { o.Logger = logger })

	mustSet(t, db, "k", 1)

	out := buf.String()
	assert.True(t, strings.Contains(out, "database opened"), out)
	assert.True(t, strings.Contains(out, "database written"), out)
	assert.True(t, strings.Contains(out, "keys=1"), out)
}
