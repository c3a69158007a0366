package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

const colorReset = "\033[0m"

// ColorTextHandler renders records with slog.TextHandler and prints a
// coloured level tag in front of each line. The tag is written raw so the
// terminal sees the escape codes; the level attribute itself is dropped.
type ColorTextHandler struct {
	text     slog.Handler
	out      *lineBuffer
	showTime bool
}

// lineBuffer is shared by a handler and everything derived from it.
type lineBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	w   io.Writer
}

// NewColorTextHandler creates a new ColorTextHandler. With showTime false
// the time attribute is dropped.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	o := slog.HandlerOptions{}
	if opts != nil {
		o = *opts
	}
	prev := o.ReplaceAttr
	o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 {
			switch a.Key {
			case slog.LevelKey:
				return slog.Attr{}
			case slog.TimeKey:
				if !showTime {
					return slog.Attr{}
				}
			}
		}
		if prev != nil {
			return prev(groups, a)
		}
		return a
	}
	out := &lineBuffer{w: w}
	return &ColorTextHandler{
		text:     slog.NewTextHandler(&out.buf, &o),
		out:      out,
		showTime: showTime,
	}
}

// Enabled implements slog.Handler
func (h *ColorTextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.text.Enabled(ctx, l)
}

// Handle implements slog.Handler
func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	h.out.buf.Reset()
	h.out.buf.WriteString(levelColor(r.Level) + r.Level.String() + colorReset + "  ")
	if err := h.text.Handle(ctx, r); err != nil {
		return err
	}
	_, err := h.out.w.Write(h.out.buf.Bytes())
	return err
}

// WithAttrs keeps the colour wrapper on derived handlers.
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorTextHandler{text: h.text.WithAttrs(attrs), out: h.out, showTime: h.showTime}
}

// WithGroup keeps the colour wrapper on derived handlers.
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	return &ColorTextHandler{text: h.text.WithGroup(name), out: h.out, showTime: h.showTime}
}

func levelColor(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "\033[36m" // cyan
	case l < slog.LevelWarn:
		return "\033[32m" // green
	case l < slog.LevelError:
		return "\033[33m" // yellow
	default:
		return "\033[31m" // red
	}
}
