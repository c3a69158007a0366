//go:build !tray

package tray

import (
	"context"
	"log/slog"
)

// Available reports whether this build has a system tray.
func Available() bool { return false }

// Run always fails with ErrUnavailable; the shell then runs headless.
func Run(context.Context, Controller, Options, *slog.Logger) error {
	return ErrUnavailable
}
