// Package log is the engine's leveled logger. The level is global and
// atomic so the audio path can check it without locking; the audio callback
// itself never logs.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var currentLevel atomic.Uint32

// logger shows date and time with microseconds.
var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

// exit is swapped by tests.
var exit = os.Exit

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Enabled reports whether messages at level are currently written.
func Enabled(level LogLevel) bool {
	return level >= GetLevel()
}

func output(level LogLevel, prefix, msg string) {
	if !Enabled(level) && level != LevelFatal {
		return
	}
	// INFO and WARN are one character shorter; pad so messages line up.
	pad := " "
	if level == LevelInfo || level == LevelWarn {
		pad = "  "
	}
	_ = logger.Output(3, "["+level.String()+"]"+pad+prefix+msg)
	if level == LevelFatal {
		exit(1)
	}
}

func Debugf(format string, v ...any) { output(LevelDebug, "", fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { output(LevelInfo, "", fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { output(LevelWarn, "", fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { output(LevelError, "", fmt.Sprintf(format, v...)) }

// Fatalf logs regardless of level and exits the process.
func Fatalf(format string, v ...any) { output(LevelFatal, "", fmt.Sprintf(format, v...)) }

func Debug(v ...any) { output(LevelDebug, "", fmt.Sprint(v...)) }
func Info(v ...any)  { output(LevelInfo, "", fmt.Sprint(v...)) }
func Warn(v ...any)  { output(LevelWarn, "", fmt.Sprint(v...)) }
func Error(v ...any) { output(LevelError, "", fmt.Sprint(v...)) }
func Fatal(v ...any) { output(LevelFatal, "", fmt.Sprint(v...)) }

// Logger prefixes every message with a component name, e.g. "stream: ".
// It shares the global level and output.
type Logger struct {
	prefix string
}

// Named returns a Logger for component.
func Named(component string) *Logger {
	return &Logger{prefix: component + ": "}
}

func (l *Logger) Debugf(format string, v ...any) {
	if Enabled(LevelDebug) {
		output(LevelDebug, l.prefix, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Infof(format string, v ...any) {
	output(LevelInfo, l.prefix, fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...any) {
	output(LevelWarn, l.prefix, fmt.Sprintf(format, v...))
}

func (l *Logger) Errorf(format string, v ...any) {
	output(LevelError, l.prefix, fmt.Sprintf(format, v...))
}
