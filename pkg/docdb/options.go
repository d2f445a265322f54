package docdb

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/calvinalkan/docdb/pkg/fs"
)

// DefaultDir is the directory used when [Options.Path] is empty.
const DefaultDir = "databases"

// Options configures [Open].
type Options struct {
	// Path is the logical database path, resolved by [NormalizePath].
	// Default: "databases/db" plus the codec extension.
	Path string

	// Format selects the built-in codec. Ignored when Codec is set.
	// Default: [FormatJSON].
	Format Format

	// MaxDataSize caps the number of successful Set calls counted by the
	// handle. 0 means no limit. Negative values are rejected.
	MaxDataSize int

	// WorkDir is the directory relative paths resolve against.
	// Default: the process working directory.
	WorkDir string

	// FS is the filesystem. Default: [fs.NewReal].
	FS fs.FS

	// Codec overrides Format with a custom serialization.
	Codec Codec

	// Logger receives debug logs for file operations. Default: discard.
	Logger *slog.Logger
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		Format: FormatJSON,
	}
}

// withDefaults validates opts and fills zero fields.
func (o Options) withDefaults() (Options, error) {
	if o.MaxDataSize < 0 {
		return o, wrap(ErrInvalidOption, fmt.Errorf("max data size must be positive, got %d", o.MaxDataSize))
	}

	if o.Codec == nil {
		codec, err := CodecFor(o.Format)
		if err != nil {
			return o, err
		}

		o.Codec = codec
	}

	o.Format = o.Codec.Name()

	if o.Path == "" {
		o.Path = DefaultDir + "/" + defaultBaseName + o.Codec.Ext()
	}

	if o.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return o, wrap(ErrIO, fmt.Errorf("get working directory: %w", err))
		}

		o.WorkDir = wd
	}

	if o.FS == nil {
		o.FS = fs.NewReal()
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	return o, nil
}

// WriteOption adjusts a single mutating call.
type WriteOption func(*writeConfig)

type writeConfig struct {
	skipPersist bool
}

// SkipPersist applies the mutation and updates the size counter without
// writing the backing file.
//
// Because every call re-reads the file, a skipped write is not visible to
// later calls.
func SkipPersist() WriteOption {
	return func(c *writeConfig) {
		c.skipPersist = true
	}
}

func applyWriteOptions(opts []WriteOption) writeConfig {
	var cfg writeConfig

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
