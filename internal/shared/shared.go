// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that writes to stderr and to a rotating file at path.
//
// An empty path is equivalent to [NewLogger] with a nil writer.
func NewFileLogger(path string) *log.Logger {
	if path == "" {
		return NewLogger(nil)
	}
	return NewLogger(io.MultiWriter(os.Stderr, RotatingWriter(path)))
}

// RotatingWriter returns a size-rotated, compressed log file writer at path.
func RotatingWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    25,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel converts a level name from the config into a [log.Level], defaulting to info.
func ParseLogLevel(name string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// Redact shortens a credential value for logging, keeping only a short prefix.
func Redact(value string) string {
	if value == "" {
		return "<empty>"
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:6] + "…(" + strconv.Itoa(len(value)) + ")"
}
