package fs

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection. Unset fields default to 0.0.
type ChaosConfig struct {
	// ReadFailRate controls how often FS.ReadFile and FS.Open fail, returning
	// EACCES or EIO.
	ReadFailRate float64

	// WriteFailRate controls how often FS.WriteFile and FS.WriteFileAtomic
	// fail before touching the target file. Returns EIO, ENOSPC or EROFS.
	WriteFailRate float64

	// MkdirFailRate controls how often FS.Mkdir and FS.MkdirAll fail.
	// Returns EACCES, ENOSPC or EROFS.
	MkdirFailRate float64

	// RemoveFailRate controls how often FS.Remove fails.
	// Returns EACCES, EBUSY or EIO.
	RemoveFailRate float64

	// StatFailRate controls how often FS.Stat and FS.Exists fail.
	// Returns EACCES or EIO.
	StatFailRate float64

	// RenameFailRate controls how often FS.Rename fails. Returns an
	// *os.LinkError (not *fs.PathError) with EXDEV or EIO.
	RenameFailRate float64
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive enables fault-rate injection.
	// This is the default mode for a new [Chaos].
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every operation directly to the underlying FS.
	ChaosModeNoOp
)

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	ReadFails   int64
	WriteFails  int64
	MkdirFails  int64
	RemoveFails int64
	StatFails   int64
	RenameFails int64
}

// chaosError marks an error as intentionally injected by [Chaos].
//
// It wraps the underlying error so errors.Is/As continue to work, including
// os.IsPermission on the wrapped *fs.PathError.
type chaosError struct {
	Err error
}

func (e *chaosError) Error() string {
	return "chaos: " + e.Err.Error()
}

func (e *chaosError) Unwrap() error {
	return e.Err
}

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
// Returns false if err is nil.
func IsChaosErr(err error) bool {
	var injected *chaosError

	return errors.As(err, &injected)
}

// Chaos wraps an [FS] and injects failures for testing.
//
// Every injected failure happens before the wrapped FS is called, so a failed
// write never modifies the target. Chaos never injects ENOENT; any
// os.IsNotExist result originates from the wrapped [FS].
type Chaos struct {
	fs   FS
	cfg  ChaosConfig
	mode atomic.Uint32

	mu  sync.Mutex
	rng *rand.Rand

	readFails   atomic.Int64
	writeFails  atomic.Int64
	mkdirFails  atomic.Int64
	removeFails atomic.Int64
	statFails   atomic.Int64
	renameFails atomic.Int64
}

// NewChaos wraps fsys with fault injection configured by cfg.
// The same seed reproduces the same sequence of injected faults.
// Panics if fsys is nil.
func NewChaos(fsys FS, seed int64, cfg ChaosConfig) *Chaos {
	if fsys == nil {
		panic("fs is nil")
	}

	return &Chaos{
		fs:  fsys,
		cfg: cfg,
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

// SetMode switches between injecting faults and passing through.
func (c *Chaos) SetMode(mode ChaosMode) {
	c.mode.Store(uint32(mode))
}

// Stats returns the number of faults injected so far.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		ReadFails:   c.readFails.Load(),
		WriteFails:  c.writeFails.Load(),
		MkdirFails:  c.mkdirFails.Load(),
		RemoveFails: c.removeFails.Load(),
		StatFails:   c.statFails.Load(),
		RenameFails: c.renameFails.Load(),
	}
}

func (c *Chaos) Open(path string) (File, error) {
	if c.should(c.cfg.ReadFailRate) {
		c.readFails.Add(1)

		return nil, c.pathErr("open", path, syscall.EACCES, syscall.EIO)
	}

	return c.fs.Open(path)
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if c.should(c.cfg.ReadFailRate) {
		c.readFails.Add(1)

		return nil, c.pathErr("read", path, syscall.EACCES, syscall.EIO)
	}

	return c.fs.ReadFile(path)
}

func (c *Chaos) WriteFile(path string, data []byte, perm os.FileMode) error {
	if c.should(c.cfg.WriteFailRate) {
		c.writeFails.Add(1)

		return c.pathErr("write", path, syscall.EIO, syscall.ENOSPC, syscall.EROFS)
	}

	return c.fs.WriteFile(path, data, perm)
}

func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if c.should(c.cfg.WriteFailRate) {
		c.writeFails.Add(1)

		return c.pathErr("write", path, syscall.EIO, syscall.ENOSPC, syscall.EROFS)
	}

	return c.fs.WriteFileAtomic(path, data, perm)
}

func (c *Chaos) Mkdir(path string, perm os.FileMode) error {
	if c.should(c.cfg.MkdirFailRate) {
		c.mkdirFails.Add(1)

		return c.pathErr("mkdir", path, syscall.EACCES, syscall.ENOSPC, syscall.EROFS)
	}

	return c.fs.Mkdir(path, perm)
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if c.should(c.cfg.MkdirFailRate) {
		c.mkdirFails.Add(1)

		return c.pathErr("mkdir", path, syscall.EACCES, syscall.ENOSPC, syscall.EROFS)
	}

	return c.fs.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	if c.should(c.cfg.StatFailRate) {
		c.statFails.Add(1)

		return nil, c.pathErr("stat", path, syscall.EACCES, syscall.EIO)
	}

	return c.fs.Stat(path)
}

func (c *Chaos) Exists(path string) (bool, error) {
	if c.should(c.cfg.StatFailRate) {
		c.statFails.Add(1)

		return false, c.pathErr("stat", path, syscall.EACCES, syscall.EIO)
	}

	return c.fs.Exists(path)
}

func (c *Chaos) Remove(path string) error {
	if c.should(c.cfg.RemoveFailRate) {
		c.removeFails.Add(1)

		return c.pathErr("remove", path, syscall.EACCES, syscall.EBUSY, syscall.EIO)
	}

	return c.fs.Remove(path)
}

func (c *Chaos) Rename(oldpath, newpath string) error {
	if c.should(c.cfg.RenameFailRate) {
		c.renameFails.Add(1)

		return &chaosError{Err: &os.LinkError{
			Op:  "rename",
			Old: oldpath,
			New: newpath,
			Err: c.pick(syscall.EXDEV, syscall.EIO),
		}}
	}

	return c.fs.Rename(oldpath, newpath)
}

// --- Private api ---

func (c *Chaos) should(rate float64) bool {
	if rate <= 0 || ChaosMode(c.mode.Load()) == ChaosModeNoOp {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.Float64() < rate
}

func (c *Chaos) pick(errnos ...syscall.Errno) syscall.Errno {
	c.mu.Lock()
	defer c.mu.Unlock()

	return errnos[c.rng.IntN(len(errnos))]
}

func (c *Chaos) pathErr(op, path string, errnos ...syscall.Errno) error {
	return &chaosError{Err: &fs.PathError{Op: op, Path: path, Err: c.pick(errnos...)}}
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)
