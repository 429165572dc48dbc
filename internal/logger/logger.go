// Package logger provides process-wide structured logging for sercha-hub.
// Debug and Info messages are emitted only in verbose mode; warnings, errors
// and security events are always written.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format string

// Supported encodings.
const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format            = FormatConsole
	output  io.Writer = os.Stderr
	sugar             = build(false, FormatConsole, os.Stderr)
)

func build(v bool, f Format, w io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if f == FormatJSON {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	level := zapcore.WarnLevel
	if v {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar()
}

func rebuild() {
	sugar = build(verbose, format, output)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// SetFormat switches between console and JSON encoding.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	if f != FormatJSON {
		f = FormatConsole
	}
	format = f
	rebuild()
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = sugar.Sync()
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Debugf(format, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Debugf("=== %s ===", name)
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Warnf(format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Errorf(format, args...)
}

// Security records a security-relevant event such as a tenant isolation
// violation. It is written regardless of verbosity.
func Security(msg string, keysAndValues ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.With("security", true).Errorw(msg, keysAndValues...)
}

// With returns a logger carrying keysAndValues on every entry. It does not
// follow later SetVerbose or SetOutput calls.
func With(keysAndValues ...any) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.With(keysAndValues...)
}
