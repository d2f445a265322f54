package docdb

import (
	"errors"
	"strings"
)

// Sentinel errors. Use [errors.Is] to test for them; every error returned by
// the public API is an [*Error] wrapping one of these.
var (
	// ErrInvalidKey is returned for an empty key, or when a write's path
	// segment cannot address the node it lands on (a non-index segment on an
	// array).
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidValue is returned for values that cannot be stored or used:
	// null or empty-string values, non-finite numbers, non-positive math
	// operands, unknown math operators.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidOption is returned by [Open] for bad [Options].
	ErrInvalidOption = errors.New("invalid option")

	// ErrLimitExceeded is returned by Set once the size counter reached
	// [Options.MaxDataSize].
	ErrLimitExceeded = errors.New("data limit exceeded")

	// ErrNotArray is returned by Pull when the stored value is not an array.
	ErrNotArray = errors.New("not an array")

	// ErrNotNumber is returned by Math when the stored value cannot be
	// coerced to a number.
	ErrNotNumber = errors.New("not a number")

	// ErrIO wraps filesystem failures. The underlying *fs.PathError stays in
	// the chain, so os.IsNotExist and friends keep working.
	ErrIO = errors.New("io")

	// ErrDecode is returned when the backing file cannot be parsed.
	ErrDecode = errors.New("decode")

	// ErrEncode is returned when the document cannot be serialized.
	ErrEncode = errors.New("encode")
)

// Error is the uniform error type returned by all public docdb APIs.
//
// The operation comes first, then the cause, then the key and backing file:
//
//	set: invalid value: value must not be null (key=user.name file=/srv/databases/db.json)
//
// Use [errors.As] to extract structured fields:
//
//	var dbErr *docdb.Error
//	if errors.As(err, &dbErr) {
//	    fmt.Printf("%s failed for key %s\n", dbErr.Op, dbErr.Key)
//	}
type Error struct {
	// Op is the public operation that failed ("set", "math", "open", ...).
	Op string

	// Key is the dotted key the operation was called with, if any.
	Key string

	// File is the absolute path of the backing file, if known.
	File string

	// Err is the underlying cause.
	Err error
}

// Error formats as "<op>: <cause> (key=K file=F)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}

	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}

	if suffix := e.suffix(); suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}

	return b.String()
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

func (e *Error) suffix() string {
	var parts []string

	if e.Key != "" {
		parts = append(parts, "key="+e.Key)
	}

	if e.File != "" {
		parts = append(parts, "file="+e.File)
	}

	if len(parts) == 0 {
		return ""
	}

	return "(" + strings.Join(parts, " ") + ")"
}

// withContext attaches operation context at API boundaries and returns *Error.
// If err is already *Error, missing fields are filled in-place.
func withContext(err error, op, key, file string) error {
	if err == nil {
		return nil
	}

	existing := &Error{}
	if errors.As(err, &existing) {
		if existing.Op == "" {
			existing.Op = op
		}

		if existing.Key == "" {
			existing.Key = key
		}

		if existing.File == "" {
			existing.File = file
		}

		return existing
	}

	return &Error{Op: op, Key: key, File: file, Err: err}
}

// wrapped joins a sentinel with a more specific cause so both are visible to
// errors.Is and the message reads "<sentinel>: <cause>".
type wrapped struct {
	kind  error
	cause error
}

func (w *wrapped) Error() string {
	return w.kind.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.kind, w.cause}
}

func wrap(kind, cause error) error {
	return &wrapped{kind: kind, cause: cause}
}

func wrapMsg(kind error, msg string) error {
	return wrap(kind, errors.New(msg))
}
