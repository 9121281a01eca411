package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     atomic.Pointer[slog.Logger]
	loggerOnce sync.Once
	minLevel   = new(slog.LevelVar)
)

// initLogger initializes the global logger to write text records to stderr
// and returns the current logger.
func initLogger() *slog.Logger {
	loggerOnce.Do(func() {
		logger.CompareAndSwap(nil, newLogger(os.Stderr))
	})
	return logger.Load()
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: minLevel}))
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	initLogger()
	logger.Store(newLogger(w))
}

func SetLevel(l Level) {
	initLogger()
	minLevel.Set(l.slogLevel())
}

// ParseLevel maps debug|info|warn|error (any case) to a Level. Unknown
// values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	initLogger().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	initLogger().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	initLogger().Error(msg, extended...)
}
