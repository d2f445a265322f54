// Package config loads docdb CLI configuration from JSONC files and flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

// Errors returned by [Load].
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDBPathEmpty        = errors.New("db_path cannot be empty")
	ErrFormatInvalid      = errors.New("format must be json or yaml")
	ErrMaxDataSize        = errors.New("max_data_size cannot be negative")
)

// FileName is the project config file looked up in the work directory.
const FileName = ".docdb.json"

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DBPath      string       `json:"db_path,omitempty"`
	Format      docdb.Format `json:"format"`
	MaxDataSize int          `json:"max_data_size,omitempty"`

	// Resolved (computed, not serialized)
	WorkDir string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration. An empty DBPath lets docdb pick
// its per-format default.
func Default() Config {
	return Config{
		Format: docdb.FormatJSON,
	}
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Env             map[string]string // environment variables

	// CLI overrides; zero values mean "not set".
	DBPath         string
	Format         docdb.Format
	MaxDataSize    int
	HasMaxDataSize bool
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/docdb/config.json or ~/.config/docdb/config.json)
// 3. Project config file (.docdb.json in the work directory, if it exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()

	if globalPath := globalConfigPath(input.Env); globalPath != "" {
		globalCfg, loaded, err := loadFile(globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = globalPath
			cfg = merge(cfg, globalCfg)
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		projectPath, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
	}

	projectCfg, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
		cfg = merge(cfg, projectCfg)
	}

	if input.DBPath != "" {
		cfg.DBPath = input.DBPath
	}

	if input.Format != "" {
		cfg.Format = input.Format
	}

	if input.HasMaxDataSize {
		cfg.MaxDataSize = input.MaxDataSize
	}

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.WorkDir = workDir

	return cfg, nil
}

// DBOptions converts cfg into options for [docdb.Open].
func (c Config) DBOptions() docdb.Options {
	return docdb.Options{
		Path:        c.DBPath,
		Format:      c.Format,
		MaxDataSize: c.MaxDataSize,
		WorkDir:     c.WorkDir,
	}
}

// Marshal renders the serialized fields of cfg as indented JSON.
func Marshal(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	return string(data), nil
}

// globalConfigPath returns the path to the global config file.
// Returns empty string if no home directory is known.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "docdb", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "docdb", "config.json")
	}

	return ""
}

// loadFile loads a config file. If mustExist is false, a missing file returns
// loaded=false without error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// fileConfig mirrors Config with pointers so explicitly empty values can be
// told apart from missing ones.
type fileConfig struct {
	DBPath      *string       `json:"db_path"`
	Format      *docdb.Format `json:"format"`
	MaxDataSize *int          `json:"max_data_size"`
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var raw fileConfig

	err = json.Unmarshal(standardized, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var cfg Config

	if raw.DBPath != nil {
		if *raw.DBPath == "" {
			return Config{}, ErrDBPathEmpty
		}

		cfg.DBPath = *raw.DBPath
	}

	if raw.Format != nil {
		cfg.Format = *raw.Format
	}

	if raw.MaxDataSize != nil {
		if *raw.MaxDataSize < 0 {
			return Config{}, ErrMaxDataSize
		}

		cfg.MaxDataSize = *raw.MaxDataSize
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.DBPath != "" {
		base.DBPath = overlay.DBPath
	}

	if overlay.Format != "" {
		base.Format = overlay.Format
	}

	if overlay.MaxDataSize != 0 {
		base.MaxDataSize = overlay.MaxDataSize
	}

	return base
}

func validate(cfg Config) error {
	switch cfg.Format {
	case docdb.FormatJSON, docdb.FormatYAML:
	default:
		return fmt.Errorf("%w (got %q)", ErrFormatInvalid, cfg.Format)
	}

	if cfg.MaxDataSize < 0 {
		return ErrMaxDataSize
	}

	return nil
}
