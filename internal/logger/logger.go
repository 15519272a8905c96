package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"
)

var (
	levelVar slog.LevelVar
	base     atomic.Pointer[slog.Logger]
)

func init() {
	levelVar.Set(slog.LevelInfo)
	base.Store(newLogger(os.Stdout))
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

// SetOutput replaces the log destination, e.g. to tee into a log file.
func SetOutput(w io.Writer) {
	base.Store(newLogger(w))
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func Debugf(format string, v ...any) {
	base.Load().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	base.Load().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	base.Load().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	base.Load().Error(fmt.Sprintf(format, v...))
}
