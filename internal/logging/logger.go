// Package logging provides the leveled console/file logger used by every
// stage of the conversion run. It is a thin facade over zerolog console
// writers: INFO and WARN go to stdout, ERROR goes to stderr, and an optional
// log file receives every line without color.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/backmassage/roflconv/internal/config"
	"github.com/backmassage/roflconv/internal/term"
)

const timeFormat = "2006-01-02 15:04:05"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	zl      zerolog.Logger
	file    *os.File
	verbose bool
}

// NewLogger configures colors from cfg and optionally opens cfg.LogFile in
// append mode. Call Close() when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	return newLogger(cfg, os.Stdout, os.Stderr)
}

func newLogger(cfg *config.Config, stdout, stderr io.Writer) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	l := &Logger{verbose: cfg.Verbose}
	lw := &levelWriter{
		out: consoleWriter(stdout, !term.Enabled()),
		err: consoleWriter(stderr, !term.Enabled()),
	}

	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		l.file = f
		lw.file = consoleWriter(f, true)
	}

	if cfg.Verbose {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	}
	l.zl = zerolog.New(lw).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return l, nil
}

func consoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: timeFormat}
}

// levelWriter routes error-and-above events to stderr and everything else to
// stdout, mirroring each event into the log file when one is open.
type levelWriter struct {
	mu   sync.Mutex
	out  io.Writer
	err  io.Writer
	file io.Writer
}

func (w *levelWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dst := w.out
	if level >= zerolog.ErrorLevel && level != zerolog.NoLevel {
		dst = w.err
	}
	n, err := dst.Write(p)
	if w.file != nil {
		_, _ = w.file.Write(p)
	}
	return n, err
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

// Success logs a completed step at INFO level, tagged status=ok.
func (l *Logger) Success(format string, args ...interface{}) {
	l.zl.Info().Str("status", "ok").Msg(fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level, to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// Fail logs err at ERROR level with the formatted context. In verbose mode
// the stack recorded by github.com/pkg/errors is included.
func (l *Logger) Fail(err error, format string, args ...interface{}) {
	ev := l.zl.Error()
	if l.verbose {
		ev = ev.Stack()
	}
	ev.Err(err).Msg(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level only when verbose; no-op otherwise.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.zl.Debug().Msg(fmt.Sprintf(format, args...))
}
