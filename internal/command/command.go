package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/videospace/internal/browser"
	"github.com/loykin/videospace/internal/deeplink"
	"github.com/loykin/videospace/internal/logger"
	"github.com/loykin/videospace/internal/metrics"
	"github.com/loykin/videospace/internal/supervisor"
	"github.com/loykin/videospace/internal/sysinfo"
)

// Command names used in logs and metrics.
const (
	NameStart      = "start"
	NameStop       = "stop"
	NameStatus     = "status"
	NameOpen       = "open-in-browser"
	NameSystemInfo = "get-system-info"
	NameDeepLink   = "handle-deep-link"
)

// Commands is the shell's command surface. Every entry point (HTTP API,
// tray, deep links, autostart) goes through one Commands value that shares
// a single supervisor.
type Commands struct {
	sup     *supervisor.Supervisor
	browser browser.Opener
	sys     sysinfo.Reader
	links   *deeplink.Router
	log     *slog.Logger
}

// New wires the command surface. The deep-link router gets the built-in
// start, stop and open actions.
func New(sup *supervisor.Supervisor, opener browser.Opener, sys sysinfo.Reader, links *deeplink.Router, log *slog.Logger) *Commands {
	if log == nil {
		log = logger.Discard()
	}
	c := &Commands{sup: sup, browser: opener, sys: sys, links: links, log: log.With("component", "commands")}
	if links != nil {
		c.registerLinkActions(links)
	}
	return c
}

func (c *Commands) registerLinkActions(r *deeplink.Router) {
	r.Handle("start", func(ctx context.Context, _ deeplink.Link) error {
		_, err := c.StartServer(ctx)
		return err
	})
	r.Handle("stop", func(ctx context.Context, _ deeplink.Link) error {
		_, err := c.StopServer(ctx)
		return err
	})
	r.Handle("open", func(ctx context.Context, l deeplink.Link) error {
		target := l.Params.Get("url")
		if target == "" {
			return fmt.Errorf("%w: open requires a url parameter", deeplink.ErrInvalidLink)
		}
		return c.OpenInBrowser(ctx, target)
	})
}

// Supervisor exposes the shared supervisor for diagnostics.
func (c *Commands) Supervisor() *supervisor.Supervisor { return c.sup }

// observe records a command's outcome in metrics and the log.
func (c *Commands) observe(name string, started time.Time, err error) {
	metrics.ObserveCommand(name, started, err)
	if err != nil {
		c.log.Error("command failed", "command", name, "error", err)
		return
	}
	c.log.Debug("command done", "command", name, "took", time.Since(started))
}

// StartServer starts the video server and returns the supervisor's status
// message. A spawn failure is returned as *supervisor.SpawnError.
func (c *Commands) StartServer(ctx context.Context) (string, error) {
	t := time.Now()
	msg, err := c.sup.Start(ctx)
	c.observe(NameStart, t, err)
	return msg, err
}

// StopServer stops the video server if it is running. A failed kill still
// leaves the supervisor stopped and returns *supervisor.TerminationError.
func (c *Commands) StopServer(ctx context.Context) (string, error) {
	t := time.Now()
	msg, err := c.sup.Stop(ctx)
	c.observe(NameStop, t, err)
	return msg, err
}

// ServerStatus reports the supervisor's last known state.
func (c *Commands) ServerStatus() bool {
	t := time.Now()
	running := c.sup.Status()
	c.observe(NameStatus, t, nil)
	return running
}

// ServerInfo returns the supervisor snapshot, including handle liveness.
func (c *Commands) ServerInfo() supervisor.Info { return c.sup.Info() }

// OpenInBrowser hands rawURL to the OS browser launcher.
func (c *Commands) OpenInBrowser(ctx context.Context, rawURL string) error {
	t := time.Now()
	var err error
	if c.browser == nil {
		err = errors.New("no browser opener configured")
	} else {
		err = c.browser.Open(ctx, rawURL)
	}
	c.observe(NameOpen, t, err)
	return err
}

// SystemInfo reads OS, architecture, memory, CPU and uptime of the host.
func (c *Commands) SystemInfo(ctx context.Context) (sysinfo.Info, error) {
	t := time.Now()
	var (
		in  sysinfo.Info
		err error
	)
	if c.sys == nil {
		err = errors.New("no system info reader configured")
	} else {
		in, err = c.sys.Read(ctx)
	}
	c.observe(NameSystemInfo, t, err)
	return in, err
}

// HandleDeepLink routes a custom-scheme URL to its action. Links the router
// cannot parse are logged and accepted.
func (c *Commands) HandleDeepLink(ctx context.Context, rawURL string) error {
	t := time.Now()
	var err error
	if c.links == nil {
		c.log.Info("deep link received", "url", rawURL)
	} else {
		err = c.links.Dispatch(ctx, rawURL)
	}
	c.observe(NameDeepLink, t, err)
	return err
}

// AutoStart starts the server once in the background. Failures are only
// logged; nothing waits on the result.
func (c *Commands) AutoStart(ctx context.Context) {
	go func() {
		if _, err := c.StartServer(context.WithoutCancel(ctx)); err != nil {
			c.log.Error("autostart failed", "error", err)
			return
		}
		c.log.Info("autostart finished")
	}()
}
