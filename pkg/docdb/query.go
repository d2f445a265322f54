package docdb

import (
	"slices"
	"strings"
)

// EntryPredicate reports whether a top-level entry matches.
type EntryPredicate func(Entry) bool

// EntryComparator orders two entries like [strings.Compare].
type EntryComparator func(a, b Entry) int

// Filter returns the entries matching pred in document order.
func (db *DB) Filter(pred EntryPredicate) ([]Entry, error) {
	all, err := db.All(0)
	if err != nil {
		return nil, withContext(err, "filter", "", db.path)
	}

	if pred == nil {
		return all, nil
	}

	return slices.DeleteFunc(all, func(e Entry) bool { return !pred(e) }), nil
}

// Includes returns the entries whose ID contains sub.
func (db *DB) Includes(sub string) ([]Entry, error) {
	return db.Filter(func(e Entry) bool {
		return strings.Contains(e.ID, sub)
	})
}

// StartsWith returns the entries whose ID starts with prefix.
func (db *DB) StartsWith(prefix string) ([]Entry, error) {
	return db.Filter(func(e Entry) bool {
		return strings.HasPrefix(e.ID, prefix)
	})
}

// Sort returns all entries ordered by cmp. Equal entries keep document order.
func (db *DB) Sort(cmp EntryComparator) ([]Entry, error) {
	all, err := db.All(0)
	if err != nil {
		return nil, withContext(err, "sort", "", db.path)
	}

	if cmp != nil {
		slices.SortStableFunc(all, cmp)
	}

	return all, nil
}

// FindAndDelete deletes every top-level entry matching pred and returns how
// many were deleted. The file is written once.
func (db *DB) FindAndDelete(pred EntryPredicate) (int, error) {
	if pred == nil {
		return 0, db.err(wrapMsg(ErrInvalidValue, "predicate must not be nil"), "findanddelete", "")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return 0, db.err(err, "findanddelete", "")
	}

	var matched []string

	for _, entry := range entries(root, 0) {
		if pred(entry) {
			matched = append(matched, entry.ID)
		}
	}

	if len(matched) == 0 {
		return 0, nil
	}

	for _, id := range matched {
		root.Delete(id)
	}

	err = db.persist(root)
	if err != nil {
		return 0, db.err(err, "findanddelete", "")
	}

	db.size = max(0, db.size-len(matched))

	return len(matched), nil
}

// KeyArray returns the top-level keys in document order.
func (db *DB) KeyArray() ([]string, error) {
	all, err := db.All(0)
	if err != nil {
		return nil, withContext(err, "keyarray", "", db.path)
	}

	keys := make([]string, len(all))
	for i, entry := range all {
		keys[i] = entry.ID
	}

	return keys, nil
}

// ValueArray returns the top-level values in document order.
func (db *DB) ValueArray() ([]Node, error) {
	all, err := db.All(0)
	if err != nil {
		return nil, withContext(err, "valuearray", "", db.path)
	}

	vals := make([]Node, len(all))
	for i, entry := range all {
		vals[i] = entry.Data
	}

	return vals, nil
}
