package tray

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"time"
)

//go:embed icon.png
var icon []byte

// ErrUnavailable is returned by Run in builds without the tray tag.
var ErrUnavailable = errors.New("tray support not compiled in (build with -tags tray)")

// Controller is the part of the command surface the menu drives.
type Controller interface {
	StartServer(ctx context.Context) (string, error)
	StopServer(ctx context.Context) (string, error)
	ServerStatus() bool
	OpenInBrowser(ctx context.Context, url string) error
}

// Options configures the tray menu.
type Options struct {
	Tooltip      string
	UIURL        string        // opened by "Open UI"
	PollInterval time.Duration // how often the status line is refreshed
}

func (o Options) withDefaults() Options {
	if o.Tooltip == "" {
		o.Tooltip = "Video Space"
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	return o
}

// menuState is what the menu shows for one supervisor state.
type menuState struct {
	Status       string
	Tooltip      string
	StartEnabled bool
	StopEnabled  bool
}

func stateFor(running bool, tooltip string) menuState {
	if running {
		return menuState{Status: "Server: Running", Tooltip: tooltip + " - Running", StopEnabled: true}
	}
	return menuState{Status: "Server: Stopped", Tooltip: tooltip + " - Stopped", StartEnabled: true}
}

// actions runs menu clicks against the controller. Failures are logged.
type actions struct {
	ctl  Controller
	opts Options
	log  *slog.Logger
}

func (a actions) start(ctx context.Context) {
	msg, err := a.ctl.StartServer(ctx)
	if err != nil {
		a.log.Error("tray start failed", "error", err)
		return
	}
	a.log.Info("tray start", "result", msg)
}

func (a actions) stop(ctx context.Context) {
	msg, err := a.ctl.StopServer(ctx)
	if err != nil {
		a.log.Error("tray stop failed", "error", err)
		return
	}
	a.log.Info("tray stop", "result", msg)
}

func (a actions) openUI(ctx context.Context) {
	if a.opts.UIURL == "" {
		a.log.Warn("no UI url configured")
		return
	}
	if err := a.ctl.OpenInBrowser(ctx, a.opts.UIURL); err != nil {
		a.log.Error("tray open UI failed", "error", err)
	}
}

func (a actions) state() menuState {
	return stateFor(a.ctl.ServerStatus(), a.opts.Tooltip)
}
