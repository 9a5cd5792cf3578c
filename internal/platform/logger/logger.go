package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns the process slog logger writing to stdout.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter builds a logger for an arbitrary sink. Format "text" selects
// the text handler; anything else logs JSON.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", "kycbridge")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskHandle hides the middle of a recipient handle for log output,
// keeping the country prefix and last four digits.
func MaskHandle(handle string) string {
	runes := []rune(handle)
	if len(runes) <= 6 {
		return strings.Repeat("*", len(runes))
	}
	head := 3
	tail := 4
	return string(runes[:head]) + strings.Repeat("*", len(runes)-head-tail) + string(runes[len(runes)-tail:])
}
