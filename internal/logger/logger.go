// Package logger provides the package-global structured logger shared by
// both binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Log is the process-wide logger. Init must be called once at startup
// before any other package logs through it.
var Log *slog.Logger

// Init configures Log: level is one of "debug"/"info"/"warn"/"error"
// (defaulting to "info" for anything else), and logFile, if non-empty, is
// opened for append and tee'd alongside stderr. The agent writes to stderr
// rather than stdout so a spawned debuggee's own stdout output is never
// interleaved with debugger diagnostics (spec.md §6 `ldbg run`).
func Init(level string, logFile string) error {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writers := []io.Writer{os.Stderr}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)
	return nil
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
