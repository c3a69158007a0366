package videospace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/loykin/videospace/internal/browser"
	"github.com/loykin/videospace/internal/command"
	cfg "github.com/loykin/videospace/internal/config"
	"github.com/loykin/videospace/internal/deeplink"
	"github.com/loykin/videospace/internal/history"
	"github.com/loykin/videospace/internal/history/factory"
	"github.com/loykin/videospace/internal/logger"
	"github.com/loykin/videospace/internal/metrics"
	"github.com/loykin/videospace/internal/server"
	"github.com/loykin/videospace/internal/supervisor"
	"github.com/loykin/videospace/internal/sysinfo"
	"github.com/loykin/videospace/internal/tray"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.

type Config = cfg.Config

type ServerInfo = supervisor.Info

type SystemInfo = sysinfo.Info

type Launcher = supervisor.Launcher

type Opener = browser.Opener

type Commands = command.Commands

// LoadConfig reads a TOML config over the defaults; an empty path gives defaults.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

func DefaultConfig() *Config { return cfg.Default() }

const shutdownTimeout = 5 * time.Second

// App is the assembled shell: one supervisor shared by the API, tray,
// deep links and autostart.
type App struct {
	cfg       *Config
	log       *slog.Logger
	logCloser io.Closer

	launcher supervisor.Launcher
	opener   browser.Opener
	sys      sysinfo.Reader
	registry prometheus.Registerer

	sup    *supervisor.Supervisor
	cmds   *command.Commands
	sinks  []history.Sink
	router *server.Router
}

// Option customizes New.
type Option func(*App)

// WithLogger replaces the logger built from the [log] section.
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.log = l } }

// WithLauncher replaces the os/exec launcher, e.g. in tests.
func WithLauncher(l Launcher) Option { return func(a *App) { a.launcher = l } }

// WithOpener replaces the OS browser launcher.
func WithOpener(o Opener) Option { return func(a *App) { a.opener = o } }

// WithSystemInfo replaces the gopsutil-backed reader.
func WithSystemInfo(r sysinfo.Reader) Option { return func(a *App) { a.sys = r } }

// WithRegisterer registers metrics somewhere other than the default registry.
func WithRegisterer(r prometheus.Registerer) Option { return func(a *App) { a.registry = r } }

// New validates c and wires every component. Close releases what New opened.
func New(c *Config, opts ...Option) (*App, error) {
	if c == nil {
		c = cfg.Default()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{cfg: c, logCloser: nopCloser{}}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		l, closer, err := logger.New(c.Log, os.Stderr)
		if err != nil {
			return nil, err
		}
		a.log, a.logCloser = l, closer
	}

	if c.Metrics.Enabled {
		reg := a.registry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		if err := metrics.Register(reg); err != nil {
			_ = a.logCloser.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	a.sup = supervisor.New(c.ServerSpec(), a.launcher, a.log)

	var reader history.Reader
	if c.History.Enabled {
		for _, dsn := range c.History.Sinks {
			s, err := factory.NewSinkFromDSN(dsn)
			if err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("history sink %q: %w", dsn, err)
			}
			a.sinks = append(a.sinks, s)
			if r, ok := s.(history.Reader); ok && reader == nil {
				reader = r
			}
		}
		a.sup.SetHistory(a.sinks...)
	}

	if a.opener == nil {
		a.opener = browser.NewSystem(c.Browser.AllowedSchemes, a.log)
	}
	if a.sys == nil {
		a.sys = sysinfo.NewHost()
	}
	links := deeplink.NewRouter(c.DeepLink.Scheme, a.log)
	a.cmds = command.New(a.sup, a.opener, a.sys, links, a.log)

	ropts := []server.Option{server.WithLogger(a.log)}
	if reader != nil {
		ropts = append(ropts, server.WithHistory(reader))
	}
	if c.API.UIDir != "" {
		ropts = append(ropts, server.WithUI(c.API.UIDir))
	}
	a.router = server.NewRouter(a.cmds, c.API.BasePath, ropts...)
	return a, nil
}

// Commands returns the shared command surface.
func (a *App) Commands() *Commands { return a.cmds }

// Handler returns the HTTP API so it can be mounted in another server.
func (a *App) Handler() http.Handler { return a.router.Handler() }

// Logger returns the app logger.
func (a *App) Logger() *slog.Logger { return a.log }

// Run autostarts the server when configured, serves the API (and metrics),
// shows the tray when available, and blocks until ctx is done or the tray
// quits. On the way out the child is stopped only when stop_on_exit is set.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiSrv := server.NewServer(a.cfg.API.Listen, a.router)
	servers := []*http.Server{apiSrv}
	if a.cfg.Metrics.Enabled {
		servers = append(servers, metrics.NewServer(a.cfg.Metrics.Listen))
	}
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			a.shutdown(servers)
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		a.log.Info("listening", "addr", ln.Addr().String())
		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv, ln)
	}

	if a.cfg.Server.AutoStart {
		a.cmds.AutoStart(ctx)
	}

	if a.cfg.Tray.Enabled && tray.Available() {
		go func() {
			select {
			case err := <-errCh:
				errCh <- err
				cancel()
			case <-ctx.Done():
			}
		}()
		opts := tray.Options{Tooltip: a.cfg.Tray.Tooltip, UIURL: a.cfg.Server.URL}
		if err := tray.Run(ctx, a.cmds, opts, a.log); err != nil {
			a.log.Warn("tray unavailable", "error", err)
			<-ctx.Done()
		}
		cancel()
	} else {
		if a.cfg.Tray.Enabled {
			a.log.Info("tray not available in this build, running headless")
		}
		select {
		case err := <-errCh:
			errCh <- err
		case <-ctx.Done():
		}
	}

	var runErr error
	select {
	case runErr = <-errCh:
		a.log.Error("http server failed", "error", runErr)
	default:
	}
	a.shutdown(servers)
	if a.cfg.Server.StopOnExit {
		if msg, err := a.cmds.StopServer(context.Background()); err != nil {
			a.log.Error("stop on exit failed", "error", err)
		} else {
			a.log.Info("stop on exit", "result", msg)
		}
	}
	return runErr
}

func (a *App) shutdown(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			a.log.Warn("server shutdown", "addr", srv.Addr, "error", err)
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Close waits for pending history writes, then releases the sinks and the
// log file.
func (a *App) Close() error {
	var flushErr error
	if a.sup != nil && len(a.sinks) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.sup.Flush(ctx); err != nil {
			flushErr = fmt.Errorf("flush history: %w", err)
		}
		cancel()
	}
	err := history.CloseAll(a.sinks)
	a.sinks = nil
	return errors.Join(flushErr, err, a.logCloser.Close())
}
