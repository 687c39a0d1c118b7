/*
Package log provides the leveled printf-style logger used by all cadfael
components.

Messages are written through zerolog's console writer either to the standard
error or to the file opened by Open. The file can be reopened by Reopen, which
is useful for the log rotation procedure (see SIGHUP handling in cmd/cadfael).
*/
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Flags passed to Open
const (
	NoFlags		=	0
	Timestamps	=	1
)

// DefaultLog means logging to the standard error
const DefaultLog = ""

const tsFormat = `2006/01/02 15:04:05`

var (
	mtx		sync.Mutex

	// Open() parameters, kept to be able to reopen the log
	fileName	string
	progName	string
	logFlags	int

	file	*os.File
	debug	atomic.Bool

	logger	atomic.Pointer[zerolog.Logger]
)

func init() {
	// Usable before Open() is called
	l := newLogger(os.Stderr, "", NoFlags)
	logger.Store(&l)
}

// Open opens the log file (or the standard error if name is DefaultLog).
// The prog value is added to each message as the program name
func Open(name, prog string, flags int) error {
	mtx.Lock()
	defer mtx.Unlock()

	fileName, progName, logFlags = name, prog, flags

	return openLocked()
}

// Reopen closes and opens again the currently configured log file
func Reopen() error {
	mtx.Lock()
	defer mtx.Unlock()

	return openLocked()
}

// Close closes the log file if it was opened, logging falls back to stderr
func Close() error {
	mtx.Lock()
	defer mtx.Unlock()

	l := newLogger(os.Stderr, progName, logFlags)
	logger.Store(&l)

	return closeFileLocked()
}

// SetDebug enables or disables debug messages
func SetDebug(v bool) {
	debug.Store(v)
}

// Debug returns true if debug messages are enabled
func Debug() bool {
	return debug.Load()
}

func openLocked() error {
	var out io.Writer = os.Stderr

	// Is a real file required?
	if fileName != DefaultLog {
		f, err := os.OpenFile(fileName, os.O_WRONLY | os.O_CREATE | os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("(log:Open) cannot open log file %q: %w", fileName, err)
		}

		// Replace previously opened file
		if err := closeFileLocked(); err != nil {
			// Not critical, the new file is already opened
			fmt.Fprintf(os.Stderr, "WARN: cannot close previous log file: %v\n", err)
		}
		file = f
		out = f
	}

	l := newLogger(out, progName, logFlags)
	logger.Store(&l)

	// OK
	return nil
}

func closeFileLocked() error {
	if file == nil {
		return nil
	}

	err := file.Close()
	file = nil

	return err
}

func newLogger(out io.Writer, prog string, flags int) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:		out,
		NoColor:	true,
		TimeFormat:	tsFormat,
	}
	if flags & Timestamps == 0 {
		// Remove the timestamp column completely
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	ctx := zerolog.New(cw).Level(zerolog.DebugLevel).With()
	if flags & Timestamps != 0 {
		ctx = ctx.Timestamp()
	}
	if prog != "" {
		ctx = ctx.Str("prog", prog)
	}

	return ctx.Logger()
}

func current() *zerolog.Logger {
	return logger.Load()
}

// D prints a debug message if debug logging is enabled
func D(format string, v ...any) {
	if !debug.Load() {
		return
	}
	current().Debug().Msgf(format, v...)
}

// I prints an informational message
func I(format string, v ...any) {
	current().Info().Msgf(format, v...)
}

// W prints a warning message
func W(format string, v ...any) {
	current().Warn().Msgf(format, v...)
}

// E prints an error message
func E(format string, v ...any) {
	current().Error().Msgf(format, v...)
}

// F prints a fatal message and terminates the program
func F(format string, v ...any) {
	current().WithLevel(zerolog.FatalLevel).Msgf(format, v...)
	os.Exit(1)
}
