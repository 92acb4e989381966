// Package loader hands the converted documents to the external database
// loader once a batch is complete.
package loader

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/backmassage/roflconv/internal/config"
)

// Environment variables set for the child in addition to the inherited ones.
const (
	EnvPythonPath = "PYTHON_PATH"
	EnvJSONDir    = "ROFLCONV_JSON_DIR"
)

// Loader describes one loader invocation: Interpreter Script Args...
type Loader struct {
	Interpreter string
	Script      string
	Args        []string
	Env         map[string]string // Added to (or overriding) os.Environ.

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// FromConfig builds the loader invocation for cfg. The child inherits the
// terminal and receives every original CLI argument unchanged. PYTHON_PATH
// is exported only when a python path was configured; the last one wins.
func FromConfig(cfg *config.Config) *Loader {
	env := map[string]string{EnvJSONDir: cfg.TargetDir}
	if n := len(cfg.PythonPaths); n > 0 {
		env[EnvPythonPath] = cfg.PythonPaths[n-1]
	}
	return &Loader{
		Interpreter: cfg.Interpreter,
		Script:      cfg.LoaderScript,
		Args:        append([]string(nil), cfg.ForwardArgs...),
		Env:         env,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// Argv returns the full command line.
func (l *Loader) Argv() []string {
	argv := []string{l.Interpreter}
	if l.Script != "" {
		argv = append(argv, l.Script)
	}
	return append(argv, l.Args...)
}

// Environ returns the child environment: the parent's plus Env.
func (l *Loader) Environ() []string {
	env := os.Environ()
	for k, v := range l.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// Run starts the loader and waits for it. A non-zero exit is reported as
// its code with a nil error; err is set only when the process could not be
// run at all.
func (l *Loader) Run(ctx context.Context) (int, error) {
	argv := l.Argv()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = l.Environ()
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrapf(err, "run %s", argv[0])
}
