package docdb_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

func seedUsers(t *testing.T, format docdb.Format) *docdb.DB {
	t.Helper()

	db := openTestDB(t, format)

	mustSet(t, db, "user_2", map[string]any{"name": "bob", "age": 30})
	mustSet(t, db, "admin", map[string]any{"name": "root", "age": 50})
	mustSet(t, db, "user_1", map[string]any{"name": "ada", "age": 30})

	return db
}

func Test_DB_Includes_And_StartsWith_Filter_By_ID(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		db := seedUsers(t, format)

		got, err := db.Includes("user")
		require.NoError(t, err)
		assert.Equal(t, []string{"user_2", "user_1"}, ids(got), format)

		got, err = db.StartsWith("adm")
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, ids(got), format)

		got, err = db.Includes("nobody")
		require.NoError(t, err)
		assert.Empty(t, got, format)
	}
}

func Test_DB_Filter_Returns_Matching_Entries_In_Document_Order(t *testing.T) {
	t.Parallel()

	db := seedUsers(t, docdb.FormatJSON)

	got, err := db.Filter(func(e docdb.Entry) bool {
		obj, _ := e.Data.AsObject()
		age, _ := obj.Get("age")

		return age.Equal(docdb.Number(30))
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"user_2", "user_1"}, ids(got))
}

func Test_DB_Sort_Orders_Entries_And_Keeps_Ties_Stable(t *testing.T) {
	t.Parallel()

	db := seedUsers(t, docdb.FormatJSON)

	byID, err := db.Sort(func(a, b docdb.Entry) int { return strings.Compare(a.ID, b.ID) })
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "user_1", "user_2"}, ids(byID))

	byAge, err := db.Sort(func(a, b docdb.Entry) int {
		ageA, _ := mustField(a, "age").AsNumber()
		ageB, _ := mustField(b, "age").AsNumber()

		switch {
		case ageA < ageB:
			return -1
		case ageA > ageB:
			return 1
		default:
			return 0
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user_2", "user_1", "admin"}, ids(byAge))
}

func Test_DB_FindAndDelete_Removes_Matches_And_Returns_Count(t *testing.T) {
	t.Parallel()

	for _, format := range formats {
		db := seedUsers(t, format)

		n, err := db.FindAndDelete(func(e docdb.Entry) bool { return strings.HasPrefix(e.ID, "user") })
		require.NoError(t, err)
		assert.Equal(t, 2, n, format)

		keys, err := db.KeyArray()
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, keys, format)

		assert.Equal(t, 1, db.Size(), "%s: 3 sets minus 2 deletes", format)
	}
}

func Test_DB_FindAndDelete_Does_Not_Write_When_Nothing_Matches(t *testing.T) {
	t.Parallel()

	db := seedUsers(t, docdb.FormatJSON)
	before := readFile(t, db.Path())

	n, err := db.FindAndDelete(func(docdb.Entry) bool { return false })
	require.NoError(t, err)

	assert.Equal(t, 0, n)
	assert.Equal(t, before, readFile(t, db.Path()))
}

func Test_DB_KeyArray_And_ValueArray_Project_Entries(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, docdb.FormatYAML)

	mustSet(t, db, "b", 2)
	mustSet(t, db, "a", "one")

	keys, err := db.KeyArray()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys)

	vals, err := db.ValueArray()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]docdb.Node{docdb.Number(2), docdb.String("one")}, vals))
}

func mustField(e docdb.Entry, field string) docdb.Node {
	obj, _ := e.Data.AsObject()
	val, _ := obj.Get(field)

	return val
}
