// Package logger provides structured logging for the ledmatrix daemon.
//
// It wraps a zap sugared logger behind package-level functions so that
// call sites stay terse (logger.Infof, logger.Errorf) without threading a
// logger instance through every constructor. Initialize must be called
// once at startup; before that, calls fall back to a production logger
// writing to stderr.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger
)

// Initialize configures the package logger. When debug is true, logs are
// emitted at debug level in a human-readable console format; otherwise
// JSON at info level.
func Initialize(debug bool) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap's default configs cannot fail to build; keep the fallback anyway.
		l = zap.NewNop()
	}

	mu.Lock()
	log = l.Sugar()
	mu.Unlock()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		base, _ := zap.NewProduction(zap.AddCallerSkip(1))
		log = base.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = get().Sync()
}

// Debug logs a message at debug level.
func Debug(args ...any) { get().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { get().Debugf(format, args...) }

// Info logs a message at info level.
func Info(args ...any) { get().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { get().Infof(format, args...) }

// Warn logs a message at warn level.
func Warn(args ...any) { get().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { get().Warnf(format, args...) }

// Error logs a message at error level.
func Error(args ...any) { get().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { get().Errorf(format, args...) }

// Fatalf logs a formatted message at fatal level and exits.
func Fatalf(format string, args ...any) { get().Fatalf(format, args...) }
