package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into archival, handoff, behavior, display, and utility.
// Negated flags (e.g. --no-color) are applied after Parse so Config defaults hold unless set.

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ParseFlags parses args (normally os.Args[1:]) into cfg. On --help or
// --version it prints and exits. On error it returns non-nil (e.g. bad
// flag value, too many positional args).
//
// Every argument, including ones after a "--" separator, is recorded in
// cfg.ForwardArgs unchanged for the loader handoff. Flags roflconv does not
// define are left for the loader rather than rejected, and flags may follow
// the positional directories. Arguments after "--" are not interpreted here.
func ParseFlags(cfg *Config, version string, args []string) error {
	fs := flag.NewFlagSet("roflconv", flag.ContinueOnError)
	fs.Usage = func() { printUsage(version) }

	cfg.ForwardArgs = append([]string(nil), args...)
	own, _ := splitPassthrough(args)

	// Negated/override flags: we capture bools then apply to cfg after Parse,
	// so that defaults from DefaultConfig() hold unless the user passes the flag.
	var negated negatedFlags

	defineArchiveFlags(fs, cfg)
	defineHandoffFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, &negated)

	known, positional := sortArgs(fs, own)
	if err := fs.Parse(known); err != nil {
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(version)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "roflconv v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(positional, cfg)
}

// sortArgs splits args into the flags fs defines (with their values) and
// positional arguments. Foreign flags are dropped here; they only reach the
// loader through ForwardArgs. A defined non-bool flag written without "="
// takes the next argument as its value. Foreign flags never take one, so
// they must be written as --name=value.
func sortArgs(fs *flag.FlagSet, args []string) (known, positional []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		name := strings.TrimPrefix(a[1:], "-")
		hasValue := false
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name, hasValue = name[:eq], true
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		known = append(known, a)
		if !hasValue && !isBoolFlag(f) && i+1 < len(args) {
			i++
			known = append(known, args[i])
		}
	}
	return known, positional
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// splitPassthrough separates arguments meant for roflconv from the ones
// after the first "--", which are only forwarded to the loader.
func splitPassthrough(args []string) (own, rest []string) {
	for i, a := range args {
		if a == "--" {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default or trigger exit (showHelp, showVersion).
type negatedFlags struct {
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineArchiveFlags registers --backup, --backup-codec, --delete.
func defineArchiveFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var(&dirValue{&cfg.BackupDir}, "backup", "Copy processed containers into this directory")
	fs.Var(&dirValue{&cfg.BackupDir}, "b", "Same as --backup")
	fs.Var(&backupCodecValue{&cfg.BackupCodec}, "backup-codec", "Backup codec: none | zstd | lz4")
	fs.BoolVar(&cfg.DeleteSource, "delete", cfg.DeleteSource, "Delete containers after conversion")
}

// defineHandoffFlags registers --loader and the repeatable --python_path.
func defineHandoffFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LoaderScript, "loader", cfg.LoaderScript, "Loader script to run after the batch")
	fs.Var(&pythonPathValue{cfg}, "python_path", "Interpreter used to run the loader (repeatable, last wins)")
}

// defineBehaviorFlags registers dry-run, skip-existing, journal and skip-converted.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not write, copy or delete")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
	fs.BoolVar(&cfg.SkipExisting, "skip-existing", false, "Skip containers whose JSON already exists")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "Record conversions in this SQLite file")
	fs.BoolVar(&cfg.SkipConverted, "skip-converted", false, "Skip containers already recorded in the journal")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "Same as --log")
}

// defineUtilityFlags registers --version and --help (exit after printing).
func defineUtilityFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets SourceDir and TargetDir from up to two
// positional args; missing ones keep their env or default value.
func parsePositionalArgs(args []string, cfg *Config) error {
	if len(args) > 2 {
		return fmt.Errorf("too many arguments (want at most source_dir and target_dir, got %d)", len(args))
	}
	if len(args) >= 1 {
		cfg.SourceDir = NormalizeDirArg(args[0])
	}
	if len(args) == 2 {
		cfg.TargetDir = NormalizeDirArg(args[1])
	}
	return nil
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(version string) {
	const col1 = 30
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "roflconv v" + version + " - replay container to JSON converter"},
		{"", ""},
		{"  roflconv [OPTIONS] [source_dir] [target_dir] [-- loader args]", ""},
		{"", ""},
		{"Unrecognised --name=value flags are passed to the loader untouched.", ""},
		{"", ""},
		{"Archival", ""},
		{"  -b, --backup <dir>", "Copy processed containers into <dir>"},
		{"  --backup-codec <none|zstd|lz4>", "Backup codec (default: none)"},
		{"  --delete", "Delete containers after conversion"},
		{"", ""},
		{"Loader handoff", ""},
		{"  --loader <script>", "Run <script> after the batch"},
		{"  --python_path=<path>", "Interpreter for the loader (default: python)"},
		{"", ""},
		{"Behavior", ""},
		{"  -d, --dry-run", "Preview only; do not write, copy or delete"},
		{"  --skip-existing", "Skip containers whose JSON already exists"},
		{"  --journal <file>", "Record conversions in a SQLite journal"},
		{"  --skip-converted", "Skip containers already in the journal"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "Diagnostics (folders, interpreter, loader, journal)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
		{"", ""},
		{"Defaults: source_dir=" + DefaultSourceDir + ", target_dir=" + DefaultTargetDir, ""},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters so we can use enum and repeatable values with flag.Var.

type backupCodecValue struct{ p *BackupCodec }

func (b *backupCodecValue) String() string {
	if b.p == nil {
		return ""
	}
	return string(*b.p)
}

func (b *backupCodecValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "none", "":
		*b.p = BackupCodecNone
	case "zstd", "zst":
		*b.p = BackupCodecZstd
	case "lz4":
		*b.p = BackupCodecLZ4
	default:
		return fmt.Errorf("invalid backup codec %q (use 'none', 'zstd' or 'lz4')", s)
	}
	return nil
}

type dirValue struct{ p *string }

func (d *dirValue) String() string {
	if d.p == nil {
		return ""
	}
	return *d.p
}

func (d *dirValue) Set(s string) error {
	*d.p = NormalizeDirArg(s)
	return nil
}

// pythonPathValue records every --python_path occurrence; the last one
// becomes the loader interpreter.
type pythonPathValue struct{ cfg *Config }

func (p *pythonPathValue) String() string {
	if p.cfg == nil {
		return ""
	}
	return p.cfg.Interpreter
}

func (p *pythonPathValue) Set(s string) error {
	p.cfg.PythonPaths = append(p.cfg.PythonPaths, s)
	p.cfg.Interpreter = s
	return nil
}
