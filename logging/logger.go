// Package logging provides the experiment output channels: a tee logger
// that mirrors console output into the run directory, and CSV loggers for
// per-epoch and per-batch statistics.
package logging

import (
	"fmt"
	"io"
	"os"
)

// Logger tees writes to the console and optionally to a log file, so a
// run's stdout survives in its run directory. It implements io.Writer and
// can back fmt.Fprintf or a harness Config's LogFields.
type Logger struct {
	console io.Writer
	file    *os.File
}

// New creates a logger writing to os.Stdout and, when path is non-empty,
// to the file at path. appendMode keeps existing file content, used when
// resuming an interrupted run.
func New(path string, appendMode bool) (*Logger, error) {
	return NewWithConsole(os.Stdout, path, appendMode)
}

// NewWithConsole is New with an explicit console writer.
func NewWithConsole(console io.Writer, path string, appendMode bool) (*Logger, error) {
	if console == nil {
		console = os.Stdout
	}
	l := &Logger{console: console}

	if path != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if appendMode {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// Write writes p to the console and the log file. The returned count is
// the console's; a file write error is reported only when the console
// write succeeded.
func (l *Logger) Write(p []byte) (int, error) {
	n, err := l.console.Write(p)
	if l.file != nil {
		if _, ferr := l.file.Write(p); ferr != nil && err == nil {
			err = ferr
		}
	}
	return n, err
}

// Printf formats and writes a message to both destinations.
func (l *Logger) Printf(format string, args ...any) {
	fmt.Fprintf(l, format, args...)
}

// Flush syncs the log file to disk. Preempted jobs lose at most the
// writes since the last Flush.
func (l *Logger) Flush() error {
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

// Close closes the log file. The console writer is left open.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
