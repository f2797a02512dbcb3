// Package logger provides leveled logging for the pogo-events service. It
// wraps the standard log package with level filtering and printf-style
// helpers, matching how the rest of the service reports progress and errors.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level int

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default priority.
	InfoLevel
	// WarnLevel flags degraded but recoverable conditions.
	WarnLevel
	// ErrorLevel flags failures that need attention.
	ErrorLevel
)

// ParseLevel maps a config string onto a Level. Unknown strings fall back
// to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var (
	mu     sync.RWMutex
	level  = InfoLevel
	logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

// Init configures the default logger. format "text" adds caller locations;
// any other format keeps the compact default.
func Init(levelName, format string) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(levelName)
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	logger = log.New(os.Stderr, "", flags)
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

func output(l Level, tag, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if level > l {
		return
	}
	_ = logger.Output(3, fmt.Sprintf(tag+" "+format, args...))
}

// Debug logs at DebugLevel.
func Debug(format string, args ...interface{}) {
	output(DebugLevel, "[DEBUG]", format, args...)
}

// Info logs at InfoLevel.
func Info(format string, args ...interface{}) {
	output(InfoLevel, "[INFO]", format, args...)
}

// Warn logs at WarnLevel.
func Warn(format string, args ...interface{}) {
	output(WarnLevel, "[WARN]", format, args...)
}

// Error logs at ErrorLevel.
func Error(format string, args ...interface{}) {
	output(ErrorLevel, "[ERROR]", format, args...)
}

// Fatal logs at ErrorLevel and exits.
func Fatal(format string, args ...interface{}) {
	output(ErrorLevel, "[FATAL]", format, args...)
	os.Exit(1)
}
