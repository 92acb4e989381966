// Package check provides the --check diagnostics: folder state, loader
// interpreter and script, and journal accessibility.
package check

import (
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/backmassage/roflconv/internal/config"
	"github.com/backmassage/roflconv/internal/journal"
)

// Sentinel errors reported by the individual checks.
var (
	ErrDirMissing         = errors.New("directory not found")
	ErrNotDirectory       = errors.New("not a directory")
	ErrInterpreterMissing = errors.New("loader interpreter not found on PATH")
	ErrScriptMissing      = errors.New("loader script not found")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck prints the state of everything a conversion run depends on. It
// never modifies the filesystem and returns false if a required item is
// missing.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	ok := checkSource(cfg, log)
	checkDir(log, "Target", cfg.TargetDir)
	if cfg.BackupDir != "" {
		checkDir(log, "Backup", cfg.BackupDir)
	}
	if cfg.HandoffEnabled() {
		ok = checkInterpreter(cfg, log) && ok
		ok = checkScript(cfg, log) && ok
	} else {
		log.Info("Loader: disabled")
	}
	if cfg.JournalPath != "" {
		ok = checkJournal(cfg, log) && ok
	}
	return ok
}

// checkSource reports how many containers the source folder holds.
func checkSource(cfg *config.Config, log Logger) bool {
	if err := requireDir(cfg.SourceDir); err != nil {
		log.Error("Source: %s: %v", cfg.SourceDir, err)
		return false
	}
	entries, err := os.ReadDir(cfg.SourceDir)
	if err != nil {
		log.Error("Source: cannot list %s: %v", cfg.SourceDir, err)
		return false
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), config.ContainerExt) {
			n++
		}
	}
	log.Success("Source: %s (%d %s files)", cfg.SourceDir, n, config.ContainerExt)
	return true
}

// checkDir reports an output folder. Missing output folders are created by
// the run, so this only warns.
func checkDir(log Logger, label, dir string) {
	switch err := requireDir(dir); {
	case err == nil:
		log.Success("%s: %s", label, dir)
	case errors.Is(err, ErrDirMissing):
		log.Warn("%s: %s does not exist yet (will be created)", label, dir)
	default:
		log.Error("%s: %s: %v", label, dir, err)
	}
}

func checkInterpreter(cfg *config.Config, log Logger) bool {
	path, err := exec.LookPath(cfg.Interpreter)
	if err != nil {
		log.Error("Interpreter: %v (%s)", ErrInterpreterMissing, cfg.Interpreter)
		return false
	}
	out, err := exec.Command(path, "--version").CombinedOutput()
	if err != nil {
		log.Warn("Interpreter: %s found but --version failed: %v", path, err)
		return true
	}
	log.Success("Interpreter: %s (%s)", path, firstLine(string(out)))
	return true
}

func checkScript(cfg *config.Config, log Logger) bool {
	fi, err := os.Stat(cfg.LoaderScript)
	if err != nil || fi.IsDir() {
		log.Error("Loader: %v: %s", ErrScriptMissing, cfg.LoaderScript)
		return false
	}
	log.Success("Loader: %s", cfg.LoaderScript)
	return true
}

// checkJournal opens an existing journal to confirm it is readable. A
// journal that does not exist yet is fine; the run creates it.
func checkJournal(cfg *config.Config, log Logger) bool {
	if _, err := os.Stat(cfg.JournalPath); os.IsNotExist(err) {
		log.Info("Journal: %s (will be created)", cfg.JournalPath)
		return true
	}
	jr, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Error("Journal: %v", err)
		return false
	}
	jr.Close()
	log.Success("Journal: %s", cfg.JournalPath)
	return true
}

// requireDir returns ErrDirMissing when dir does not exist and
// ErrNotDirectory when it is something else.
func requireDir(dir string) error {
	fi, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return ErrDirMissing
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		return s[:idx]
	}
	return s
}
