// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — Structured logging for the cold paths
//
// Purpose:
//   - Owns the process logger (phuslu/log) and its writer chain.
//   - Keeps the DropError / DropMessage call sites used across the module.
//
// Notes:
//   - Async writer drains on its own goroutine; callers never block on disk.
//   - File output rotates by size via phuslu's FileWriter.
//
// ⚠️ Never invoke in the hot loop. Thread 0 reports through the ring; only
// setup, teardown and the cold thread log directly.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Options selects the log destination and verbosity.
type Options struct {
	Level      string // debug | info | warn | error
	Path       string // empty logs to stderr only
	MaxSizeMB  int
	MaxBackups int
	Console    bool // mirror to a colored console writer
	Async      bool
}

var logger = log.Logger{
	Level:      log.InfoLevel,
	TimeField:  "time",
	TimeFormat: "2006-01-02T15:04:05.000000000Z07:00",
	Writer:     &log.IOWriter{Writer: os.Stderr},
}

var closer io.Closer

// Setup replaces the package logger. It returns the logger so components
// can keep their own reference.
func Setup(o Options) (*log.Logger, error) {
	var w log.Writer
	if o.Path != "" {
		fw := &log.FileWriter{
			Filename:   o.Path,
			FileMode:   0600,
			MaxSize:    int64(o.MaxSizeMB) << 20,
			MaxBackups: o.MaxBackups,
			LocalTime:  true,
		}
		if err := fw.Rotate(); err != nil {
			return nil, err
		}
		w = fw
		if o.Console {
			w = &log.MultiEntryWriter{fw, &log.ConsoleWriter{ColorOutput: true}}
		}
	} else if o.Console {
		w = &log.ConsoleWriter{ColorOutput: true}
	} else {
		w = &log.IOWriter{Writer: os.Stderr}
	}

	if o.Async {
		aw := &log.AsyncWriter{ChannelSize: 4096, Writer: w}
		closer = aw
		w = aw
	} else if c, ok := w.(io.Closer); ok {
		closer = c
	}

	logger = log.Logger{
		Level:      log.ParseLevel(o.Level),
		TimeField:  "time",
		TimeFormat: "2006-01-02T15:04:05.000000000Z07:00",
		Writer:     w,
	}
	return &logger, nil
}

// SetWriter points the package logger at w. Used by tests to capture output.
func SetWriter(w io.Writer) {
	logger.Writer = &log.IOWriter{Writer: w}
}

// L returns the package logger.
func L() *log.Logger { return &logger }

// Close flushes any async buffer and closes the log file.
func Close() error {
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// DropError logs a failure with a short component prefix.
// A nil err logs the prefix alone as a warning tag.
func DropError(prefix string, err error) {
	if err != nil {
		logger.Error().Str("at", prefix).Err(err).Msg("")
		return
	}
	logger.Warn().Str("at", prefix).Msg("")
}

// DropMessage logs an informational state change.
func DropMessage(prefix, message string) {
	logger.Info().Str("at", prefix).Msg(message)
}
