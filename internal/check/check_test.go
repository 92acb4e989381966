package check

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/roflconv/internal/config"
	"github.com/backmassage/roflconv/internal/journal"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) add(level, format string, args ...interface{}) {
	r.lines = append(r.lines, level+" "+fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Info(f string, a ...interface{})    { r.add("INFO", f, a...) }
func (r *recordingLogger) Success(f string, a ...interface{}) { r.add("OK", f, a...) }
func (r *recordingLogger) Warn(f string, a ...interface{})    { r.add("WARN", f, a...) }
func (r *recordingLogger) Error(f string, a ...interface{})   { r.add("ERROR", f, a...) }
func (r *recordingLogger) Debug(v bool, f string, a ...interface{}) {
	if v {
		r.add("DEBUG", f, a...)
	}
}

func (r *recordingLogger) has(prefix string) bool {
	for _, l := range r.lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SourceDir = t.TempDir()
	cfg.TargetDir = filepath.Join(t.TempDir(), "out")
	return cfg
}

func TestRunCheck_Minimal(t *testing.T) {
	cfg := baseConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourceDir, "a.rofl"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourceDir, "b.txt"), []byte("x"), 0o644))

	log := &recordingLogger{}
	assert.True(t, RunCheck(&cfg, log))
	assert.True(t, log.has("OK Source: "+cfg.SourceDir+" (1 .rofl files)"), log.lines)
	assert.True(t, log.has("WARN Target:"), "missing target only warns")
	assert.True(t, log.has("INFO Loader: disabled"))
}

func TestRunCheck_MissingSource(t *testing.T) {
	cfg := baseConfig(t)
	cfg.SourceDir = filepath.Join(cfg.SourceDir, "missing")

	log := &recordingLogger{}
	assert.False(t, RunCheck(&cfg, log))
	assert.True(t, log.has("ERROR Source:"))
}

func TestRunCheck_Loader(t *testing.T) {
	cfg := baseConfig(t)
	cfg.LoaderScript = filepath.Join(t.TempDir(), "load.py")
	cfg.Interpreter = filepath.Join(t.TempDir(), "no-such-python")

	log := &recordingLogger{}
	assert.False(t, RunCheck(&cfg, log))
	assert.True(t, log.has("ERROR Interpreter:"))
	assert.True(t, log.has("ERROR Loader:"))
}

func TestRunCheck_Journal(t *testing.T) {
	cfg := baseConfig(t)
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")

	log := &recordingLogger{}
	assert.True(t, RunCheck(&cfg, log))
	assert.True(t, log.has("INFO Journal:"))
	_, err := os.Stat(cfg.JournalPath)
	assert.True(t, os.IsNotExist(err), "check does not create the journal")

	jr, err := journal.Open(cfg.JournalPath)
	require.NoError(t, err)
	require.NoError(t, jr.Close())

	log = &recordingLogger{}
	assert.True(t, RunCheck(&cfg, log))
	assert.True(t, log.has("OK Journal:"))
}

func TestRequireDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.NoError(t, requireDir(dir))
	assert.ErrorIs(t, requireDir(file), ErrNotDirectory)
	assert.ErrorIs(t, requireDir(filepath.Join(dir, "missing")), ErrDirMissing)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Python 3.12.1", firstLine("Python 3.12.1\nmore\n"))
	assert.Equal(t, "x", firstLine("  x  "))
}
