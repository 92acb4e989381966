// Package config holds runtime configuration: defaults, environment overlay,
// CLI flag parsing, and validation. Defaults are the sibling replay folders
// the converter has always used, so an argument-less run needs no setup.
package config

import (
	"errors"
	"path/filepath"
	"strings"
)

// --- Enum types for validated string fields ---

// BackupCodec selects how processed containers are archived.
type BackupCodec string

const (
	BackupCodecNone BackupCodec = "none" // Byte-identical copy (default).
	BackupCodecZstd BackupCodec = "zstd" // Zstandard-compressed copy (.rofl.zst).
	BackupCodecLZ4  BackupCodec = "lz4"  // LZ4 frame-compressed copy (.rofl.lz4).
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Default folder layout, relative to the working directory.
const (
	DefaultSourceDir   = "../file_need_conversion_to_json"
	DefaultTargetDir   = "../file_converted_to_json"
	DefaultInterpreter = "python"

	// ContainerExt is the only extension the pipeline converts.
	ContainerExt = ".rofl"
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid by [LoadEnv], then mutated by [ParseFlags] before being passed
// (by pointer) to packages that need it.
type Config struct {
	// Paths (positional args, env, or defaults).
	SourceDir string
	TargetDir string

	// Archival of processed inputs.
	BackupDir    string      // Empty disables backups.
	BackupCodec  BackupCodec // Default: "none".
	DeleteSource bool        // Remove the container after a successful conversion.

	// Loader handoff. LoaderScript empty disables the handoff.
	LoaderScript string
	Interpreter  string   // Default: "python". Set by the last --python_path.
	PythonPaths  []string // ROFLCONV_PYTHON_PATH, then every --python_path, in order.
	ForwardArgs  []string // Original CLI arguments, forwarded verbatim.

	// Conversion journal.
	JournalPath   string // Empty disables the journal.
	SkipConverted bool   // Skip containers whose hash is already journaled.

	// Behavior flags.
	DryRun       bool
	SkipExisting bool // Skip when the target JSON already exists.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	CheckOnly bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with fixed folders, no backup, no delete
// and no handoff. Used as the base before [LoadEnv] and [ParseFlags] apply
// overrides.
func DefaultConfig() Config {
	return Config{
		SourceDir:    DefaultSourceDir,
		TargetDir:    DefaultTargetDir,
		BackupCodec:  BackupCodecNone,
		Interpreter:  DefaultInterpreter,
		DeleteSource: false,
		DryRun:       false,
		SkipExisting: false,
		ColorMode:    ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// HandoffEnabled reports whether a loader script is configured.
func (c *Config) HandoffEnabled() bool {
	return c.LoaderScript != ""
}

// Validate checks enum fields and flag combinations. When not in CheckOnly
// mode, it also requires that source and target paths are non-empty.
func (c *Config) Validate() error {
	switch c.BackupCodec {
	case BackupCodecNone, BackupCodecZstd, BackupCodecLZ4:
		// valid
	default:
		return errors.New("invalid backup codec (use 'none', 'zstd' or 'lz4')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.SkipConverted && c.JournalPath == "" {
		return errors.New("--skip-converted requires --journal")
	}
	if c.Interpreter == "" {
		return errors.New("python path must not be empty")
	}

	if c.CheckOnly {
		return nil
	}
	if c.SourceDir == "" || c.TargetDir == "" {
		return errors.New("need source_dir and target_dir")
	}
	return nil
}

// ValidatePaths ensures the resolved target and backup directories differ
// from the resolved source directory. Writing JSON or backups into the
// source folder would make a later run list them as inputs. All arguments
// must be absolute, symlink-resolved paths; backupAbs may be empty.
func (c *Config) ValidatePaths(sourceAbs, targetAbs, backupAbs string) error {
	if sourceAbs == targetAbs {
		return errors.New("target directory must differ from source directory")
	}
	if backupAbs != "" && backupAbs == sourceAbs {
		return errors.New("backup directory must differ from source directory")
	}
	return nil
}

// OutputPath returns the JSON path for a container base name.
func (c *Config) OutputPath(baseName string) string {
	return filepath.Join(c.TargetDir, baseName+".json")
}
