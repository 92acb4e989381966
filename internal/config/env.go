package config

import (
	"os"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// envConfig mirrors the subset of Config that may come from the process
// environment. Empty values leave the current setting untouched.
type envConfig struct {
	SourceDir   string `env:"ROFLCONV_SOURCE_DIR"`
	TargetDir   string `env:"ROFLCONV_TARGET_DIR"`
	BackupDir   string `env:"ROFLCONV_BACKUP_DIR"`
	BackupCodec string `env:"ROFLCONV_BACKUP_CODEC"`
	Delete      bool   `env:"ROFLCONV_DELETE"`
	Loader      string `env:"ROFLCONV_LOADER"`
	PythonPath  string `env:"ROFLCONV_PYTHON_PATH"`
	Journal     string `env:"ROFLCONV_JOURNAL"`
	LogFile     string `env:"ROFLCONV_LOG_FILE"`
}

// LoadDotEnv loads variables from path (usually ".env") into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}

// LoadEnv overlays ROFLCONV_* environment variables onto cfg. It runs
// after [DefaultConfig] and before [ParseFlags], so flags win.
func LoadEnv(cfg *Config) error {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return errors.Wrap(err, "parse environment")
	}

	if e.SourceDir != "" {
		cfg.SourceDir = NormalizeDirArg(e.SourceDir)
	}
	if e.TargetDir != "" {
		cfg.TargetDir = NormalizeDirArg(e.TargetDir)
	}
	if e.BackupDir != "" {
		cfg.BackupDir = NormalizeDirArg(e.BackupDir)
	}
	if e.BackupCodec != "" {
		cfg.BackupCodec = BackupCodec(e.BackupCodec)
	}
	if e.Delete {
		cfg.DeleteSource = true
	}
	if e.Loader != "" {
		cfg.LoaderScript = e.Loader
	}
	if e.PythonPath != "" {
		cfg.PythonPaths = []string{e.PythonPath}
		cfg.Interpreter = e.PythonPath
	}
	if e.Journal != "" {
		cfg.JournalPath = e.Journal
	}
	if e.LogFile != "" {
		cfg.LogFile = e.LogFile
	}
	return nil
}
