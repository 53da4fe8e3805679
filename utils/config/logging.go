package config

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Verbose indicates whether verbose logging is enabled
var Verbose bool

// Debug indicates whether debug logging is enabled
var Debug bool

var (
	logMu  sync.Mutex
	logger = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          "scrollystory",
		ReportTimestamp: true,
	})
	l.SetLevel(log.DebugLevel)
	return l
}

// SetLogOutput redirects all log output. Useful for testing.
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = newLogger(w)
}

// Logger returns the shared logger for structured key/value logging
func Logger() *log.Logger {
	return currentLogger()
}

func currentLogger() *log.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return logger
}

// VerboseLog prints high-level operation information if verbose or debug mode is enabled
func VerboseLog(format string, args ...interface{}) {
	if Verbose || Debug {
		currentLogger().Infof(format, args...)
	}
}

// DebugLog prints detailed internal information if debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	if Debug {
		currentLogger().Debugf(format, args...)
	}
}

// WarnLog always prints; used for advisory, non-fatal conditions
func WarnLog(format string, args ...interface{}) {
	currentLogger().Warnf(format, args...)
}

// ErrorLog always prints
func ErrorLog(format string, args ...interface{}) {
	currentLogger().Errorf(format, args...)
}

// MaskKey masks a secret for logging by showing only the first and last 4 characters
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
