package docdb

import (
	"log/slog"
	"math"
	"sync"

	"github.com/calvinalkan/docdb/pkg/fs"
)

// Version is the library version reported by [DB.Info].
const Version = "1.0.0"

// DB is a handle to one document stored in one file.
//
// Every call re-reads the whole file, applies its change and, for mutations,
// rewrites the file atomically. No document state is cached between calls;
// only the size counter lives in the handle.
//
// A DB is safe for concurrent use by multiple goroutines. Separate handles
// (or processes) on the same file are not coordinated: the last writer wins.
type DB struct {
	mu sync.Mutex

	fs      fs.FS
	codec   Codec
	path    string
	maxSize int
	logger  *slog.Logger

	// size counts successful Set calls minus successful Delete calls since
	// the handle was opened. It is a write counter, not the key count:
	// overwriting a key increments it too.
	size int
}

// Entry is one top-level key of the document and its value.
type Entry struct {
	ID   string
	Data Node
}

// Info describes a handle.
type Info struct {
	Path        string
	Format      Format
	Size        int
	MaxDataSize int
	Version     string
}

// Open resolves opts.Path, creates missing directories and an empty document
// if needed, and returns a handle to it.
func Open(opts Options) (*DB, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, withContext(err, "open", "", "")
	}

	file, err := ResolvePath(opts.FS, opts.WorkDir, opts.Path, opts.Codec)
	if err != nil {
		return nil, withContext(err, "open", "", opts.Path)
	}

	opts.Logger.Debug("database opened",
		slog.String("file", file),
		slog.String("format", string(opts.Format)),
		slog.Int("max_data_size", opts.MaxDataSize))

	return &DB{
		fs:      opts.FS,
		codec:   opts.Codec,
		path:    file,
		maxSize: opts.MaxDataSize,
		logger:  opts.Logger,
	}, nil
}

// Path returns the absolute path of the backing file.
func (db *DB) Path() string {
	return db.path
}

// Size returns the write counter. See [DB] for what it counts.
func (db *DB) Size() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.size
}

// Info returns a snapshot of the handle's configuration and counter.
func (db *DB) Info() Info {
	db.mu.Lock()
	defer db.mu.Unlock()

	return Info{
		Path:        db.path,
		Format:      db.codec.Name(),
		Size:        db.size,
		MaxDataSize: db.maxSize,
		Version:     Version,
	}
}

// Get returns the value at the dotted key and whether it exists.
func (db *DB) Get(key string) (Node, bool, error) {
	segs, err := splitPath(key)
	if err != nil {
		return Node{}, false, db.err(err, "get", key)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return Node{}, false, db.err(err, "get", key)
	}

	val, ok, err := getPath(root, segs)
	if err != nil {
		return Node{}, false, db.err(err, "get", key)
	}

	return val, ok, nil
}

// GetOr returns the value at key, or def if the key does not exist.
func (db *DB) GetOr(key string, def Node) (Node, error) {
	val, ok, err := db.Get(key)
	if err != nil {
		return Node{}, err
	}

	if !ok {
		return def, nil
	}

	return val, nil
}

// Set stores value at the dotted key, creating intermediate objects, and
// returns the stored value.
//
// Null and empty-string values are rejected with [ErrInvalidValue]. Once
// MaxDataSize is set and the size counter reached it, Set fails with
// [ErrLimitExceeded].
func (db *DB) Set(key string, value Node, opts ...WriteOption) (Node, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.set("set", key, value, applyWriteOptions(opts))
}

// Delete removes the node at the dotted key. Deleting a missing key is not
// an error. Array elements are spliced out.
func (db *DB) Delete(key string, opts ...WriteOption) error {
	segs, err := splitPath(key)
	if err != nil {
		return db.err(err, "delete", key)
	}

	cfg := applyWriteOptions(opts)

	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return db.err(err, "delete", key)
	}

	_, err = deletePath(root, segs)
	if err != nil {
		return db.err(err, "delete", key)
	}

	if !cfg.skipPersist {
		err = db.persist(root)
		if err != nil {
			return db.err(err, "delete", key)
		}
	}

	if db.size > 0 {
		db.size--
	}

	return nil
}

// Exists reports whether the document has a top-level key equal to key.
//
// The key is matched literally: "a.b" checks for a top-level key named
// "a.b", not for b inside a. Use [DB.Get] for dotted lookups.
func (db *DB) Exists(key string) (bool, error) {
	if key == "" {
		return false, db.err(wrapMsg(ErrInvalidKey, "key must not be empty"), "exists", key)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return false, db.err(err, "exists", key)
	}

	return root.Has(key), nil
}

// Has is an alias for [DB.Exists].
func (db *DB) Has(key string) (bool, error) {
	return db.Exists(key)
}

// Type returns the type tag of the value at key, or [TypeUndefined] if the
// key does not exist.
func (db *DB) Type(key string) (TypeTag, error) {
	val, ok, err := db.Get(key)
	if err != nil {
		return "", withContext(err, "type", key, db.path)
	}

	if !ok {
		return TypeUndefined, nil
	}

	return val.Tag(), nil
}

// All returns the top-level entries in document order. A positive limit
// truncates the result.
func (db *DB) All(limit int) ([]Entry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	root, err := db.load()
	if err != nil {
		return nil, db.err(err, "all", "")
	}

	return entries(root, limit), nil
}

// ToJSON returns the top-level entries (truncated to a positive limit) as one
// object.
func (db *DB) ToJSON(limit int) (*Object, error) {
	all, err := db.All(limit)
	if err != nil {
		return nil, withContext(err, "tojson", "", db.path)
	}

	out := NewObject()
	for _, entry := range all {
		out.Set(entry.ID, entry.Data)
	}

	return out, nil
}

// DeleteAll replaces the document with an empty object and resets the size
// counter.
func (db *DB) DeleteAll() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	err := db.persist(NewObject())
	if err != nil {
		return db.err(err, "deleteall", "")
	}

	db.size = 0

	db.logger.Debug("database cleared", slog.String("file", db.path))

	return nil
}

// Destroy removes the backing file. The handle must not be used afterwards;
// open a new one to start over.
func (db *DB) Destroy() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	err := db.fs.Remove(db.path)
	if err != nil {
		return db.err(wrap(ErrIO, err), "destroy", "")
	}

	db.logger.Debug("database destroyed", slog.String("file", db.path))

	return nil
}

// --- Private api ---

// set validates and stores value. Callers hold db.mu.
func (db *DB) set(op, key string, value Node, cfg writeConfig) (Node, error) {
	segs, err := splitPath(key)
	if err != nil {
		return Node{}, db.err(err, op, key)
	}

	root, err := db.load()
	if err != nil {
		return Node{}, db.err(err, op, key)
	}

	return db.store(op, key, segs, root, value, cfg)
}

// store writes value into an already loaded root. Callers hold db.mu.
func (db *DB) store(op, key string, segs []string, root *Object, value Node, cfg writeConfig) (Node, error) {
	err := validateValue(value)
	if err != nil {
		return Node{}, db.err(err, op, key)
	}

	if db.maxSize > 0 && db.size >= db.maxSize {
		return Node{}, db.err(wrapMsg(ErrLimitExceeded, "maximum data size reached"), op, key)
	}

	err = setPath(root, segs, value)
	if err != nil {
		return Node{}, db.err(err, op, key)
	}

	if !cfg.skipPersist {
		err = db.persist(root)
		if err != nil {
			return Node{}, db.err(err, op, key)
		}
	}

	db.size++

	return value, nil
}

func validateValue(value Node) error {
	if value.IsNull() {
		return wrapMsg(ErrInvalidValue, "value must not be null")
	}

	if s, ok := value.AsString(); ok && s == "" {
		return wrapMsg(ErrInvalidValue, "value must not be an empty string")
	}

	if !finite(value) {
		return wrapMsg(ErrInvalidValue, "value must not contain NaN or infinite numbers")
	}

	return nil
}

// finite reports whether every number in value, at any depth, is finite.
// Neither codec can represent NaN or ±Inf.
func finite(value Node) bool {
	switch value.kind {
	case KindNumber:
		return !math.IsNaN(value.n) && !math.IsInf(value.n, 0)
	case KindArray:
		for _, item := range value.arr {
			if !finite(item) {
				return false
			}
		}
	case KindObject:
		for _, item := range value.obj.All() {
			if !finite(item) {
				return false
			}
		}
	}

	return true
}

func (db *DB) load() (*Object, error) {
	data, err := db.fs.ReadFile(db.path)
	if err != nil {
		return nil, wrap(ErrIO, err)
	}

	return db.codec.Decode(data)
}

func (db *DB) persist(root *Object) error {
	data, err := db.codec.Encode(root)
	if err != nil {
		return err
	}

	err = db.fs.WriteFileAtomic(db.path, data, 0o644)
	if err != nil {
		return wrap(ErrIO, err)
	}

	db.logger.Debug("database written",
		slog.String("file", db.path),
		slog.Int("bytes", len(data)),
		slog.Int("keys", root.Len()))

	return nil
}

func (db *DB) err(err error, op, key string) error {
	return withContext(err, op, key, db.path)
}

func entries(root *Object, limit int) []Entry {
	out := make([]Entry, 0, root.Len())

	for key, val := range root.All() {
		if limit > 0 && len(out) >= limit {
			break
		}

		out = append(out, Entry{ID: key, Data: val})
	}

	return out
}
