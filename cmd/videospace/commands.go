package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loykin/videospace"
	"github.com/loykin/videospace/pkg/client"
)

type command struct {
	global *GlobalFlags
	out    io.Writer
}

func (c command) loadConfig() (*videospace.Config, error) {
	return videospace.LoadConfig(c.global.ConfigPath)
}

// Run loads the config, applies flag overrides and runs the shell until
// SIGINT/SIGTERM or the tray's Quit.
func (c command) Run(ctx context.Context, f RunFlags) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg, f)

	app, err := videospace.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

func applyRunFlags(cfg *videospace.Config, f RunFlags) {
	if f.APIListen != "" {
		cfg.API.Listen = f.APIListen
	}
	if f.MetricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = f.MetricsListen
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.NoTray {
		cfg.Tray.Enabled = false
	}
	if f.NoAutoStart {
		cfg.Server.AutoStart = false
	}
	if f.StopOnExit {
		cfg.Server.StopOnExit = true
	}
}

// apiClient resolves the API URL (flag first, then config) and checks that a
// shell answers there.
func (c command) apiClient(ctx context.Context, f APIFlags) (*client.Client, error) {
	url := f.APIUrl
	if url == "" {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		url = "http://" + cfg.API.Listen + strings.TrimRight(cfg.API.BasePath, "/")
	}
	cl := client.New(client.Config{BaseURL: url, Timeout: f.APITimeout})
	if !cl.IsReachable(ctx) {
		return nil, fmt.Errorf("shell not reachable at %s - start it first with 'videospace run'", url)
	}
	return cl, nil
}

func (c command) Start(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	msg, err := cl.Start(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(client.MessageResponse{Message: msg})
}

func (c command) Stop(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	msg, err := cl.Stop(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(client.MessageResponse{Message: msg})
}

func (c command) Status(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	running, err := cl.Status(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(client.StatusResponse{Running: running})
}

func (c command) Info(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	info, err := cl.Info(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(info)
}

func (c command) History(ctx context.Context, f HistoryFlags) error {
	cl, err := c.apiClient(ctx, f.APIFlags)
	if err != nil {
		return err
	}
	evs, err := cl.History(ctx, f.Limit)
	if err != nil {
		return err
	}
	return c.printJSON(evs)
}

func (c command) Open(ctx context.Context, f APIFlags, url string) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	if err := cl.Open(ctx, url); err != nil {
		return err
	}
	return c.printJSON(map[string]bool{"ok": true})
}

func (c command) SystemInfo(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	info, err := cl.SystemInfo(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(info)
}

func (c command) DeepLink(ctx context.Context, f APIFlags, url string) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	if err := cl.DeepLink(ctx, url); err != nil {
		return err
	}
	return c.printJSON(map[string]bool{"ok": true})
}

func (c command) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}
