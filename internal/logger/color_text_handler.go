package logger

import (
	"context"
	"io"
	"log/slog"
)

const (
	ansiReset  = "\033[0m"
	ansiCyan   = "\033[36m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// ColorTextHandler decorates slog.TextHandler with an ANSI-colored level
// prefix for console output.
type ColorTextHandler struct {
	*slog.TextHandler
	showTime bool
}

func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	return &ColorTextHandler{
		TextHandler: slog.NewTextHandler(w, opts),
		showTime:    showTime,
	}
}

func levelColor(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return ansiCyan
	case l < slog.LevelWarn:
		return ansiGreen
	case l < slog.LevelError:
		return ansiYellow
	default:
		return ansiRed
	}
}

// Handle implements slog.Handler.
func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Message = levelColor(r.Level) + r.Level.String() + ansiReset + "  " + r.Message
	return h.TextHandler.Handle(ctx, r)
}
