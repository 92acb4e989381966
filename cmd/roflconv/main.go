// Command roflconv is the CLI entrypoint for the replay converter.
//
// It loads configuration (.env, environment, flags), validates paths, and
// either runs diagnostics (--check) or the conversion pipeline followed by
// the optional loader handoff.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/backmassage/roflconv/internal/check"
	"github.com/backmassage/roflconv/internal/config"
	"github.com/backmassage/roflconv/internal/display"
	"github.com/backmassage/roflconv/internal/loader"
	"github.com/backmassage/roflconv/internal/logging"
	"github.com/backmassage/roflconv/internal/pipeline"
	"github.com/backmassage/roflconv/internal/rofl"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg := config.DefaultConfig()
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "roflconv: %v\n", err)
		return 1
	}
	if err := config.LoadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "roflconv: %v\n", err)
		return 1
	}
	if err := config.ParseFlags(&cfg, version, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "roflconv: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "roflconv: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roflconv: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available.
	display.PrintBanner(os.Stdout, version)

	if cfg.CheckOnly {
		if !check.RunCheck(&cfg, log) {
			return 1
		}
		return 0
	}

	// Resolve and validate paths: source must exist, target (and backup)
	// are created if needed and must differ from the source.
	sourceAbs, err := absPath(cfg.SourceDir)
	if err != nil {
		log.Error("Source not found: %s", cfg.SourceDir)
		return 1
	}
	targetAbs, err := ensureDir(cfg.TargetDir, cfg.DryRun)
	if err != nil {
		log.Error("Cannot create target directory: %s", cfg.TargetDir)
		return 1
	}
	var backupAbs string
	if cfg.BackupDir != "" {
		if backupAbs, err = ensureDir(cfg.BackupDir, cfg.DryRun); err != nil {
			log.Error("Cannot create backup directory: %s", cfg.BackupDir)
			return 1
		}
	}
	if err := cfg.ValidatePaths(sourceAbs, targetAbs, backupAbs); err != nil {
		log.Error("%v", err)
		return 1
	}

	log.Info("=== roflconv v%s (%s) ===", version, commit)
	log.Info("In:  %s", cfg.SourceDir)
	log.Info("Out: %s", cfg.TargetDir)
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written, copied or deleted")
	}

	// Phase 3: Signal handling. Cancel the context on SIGINT/SIGTERM so the
	// pipeline stops between files and the loader child is killed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, finishing current file…")
		cancel()
	}()

	// Phase 4: Convert.
	if _, err := pipeline.Run(ctx, &cfg, log, rofl.Reader{}); err != nil {
		log.Fail(err, "Cannot list source directory")
		return 1
	}

	// Phase 5: Loader handoff. Its outcome is logged, never propagated.
	if cfg.HandoffEnabled() && ctx.Err() == nil {
		handoff(ctx, &cfg, log)
	}
	return 0
}

func handoff(ctx context.Context, cfg *config.Config, log *logging.Logger) {
	l := loader.FromConfig(cfg)
	if cfg.DryRun {
		log.Info("[DRY] Would run loader: %v", l.Argv())
		return
	}
	log.Info("Handing off to loader: %s %s", l.Interpreter, l.Script)
	code, err := l.Run(ctx)
	switch {
	case err != nil:
		log.Fail(err, "Loader could not be started")
	case code != 0:
		log.Error("Loader exited with code %d", code)
	default:
		log.Success("Loader finished")
	}
}

// ensureDir creates dir (unless dryRun) and returns its resolved path.
// In dry-run mode a missing directory resolves to its absolute path.
func ensureDir(dir string, dryRun bool) (string, error) {
	if !dryRun {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	abs, err := absPath(dir)
	if err != nil && dryRun {
		return filepath.Abs(dir)
	}
	return abs, err
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of source vs target directories.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
