package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/loykin/videospace/internal/deeplink"
	"github.com/loykin/videospace/internal/logger"
	"github.com/loykin/videospace/internal/process"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VIDEOSPACE_API_LISTEN.
const EnvPrefix = "VIDEOSPACE"

// Config is the top-level TOML structure.
type Config struct {
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	API      APIConfig      `toml:"api" mapstructure:"api"`
	Log      logger.Options `toml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	History  HistoryConfig  `toml:"history" mapstructure:"history"`
	DeepLink DeepLinkConfig `toml:"deeplink" mapstructure:"deeplink"`
	Browser  BrowserConfig  `toml:"browser" mapstructure:"browser"`
	Tray     TrayConfig     `toml:"tray" mapstructure:"tray"`
}

// ServerConfig describes the external web server the shell supervises.
type ServerConfig struct {
	Name       string        `toml:"name" mapstructure:"name"`
	Command    string        `toml:"command" mapstructure:"command"`
	Args       []string      `toml:"args" mapstructure:"args"`
	WorkDir    string        `toml:"work_dir" mapstructure:"work_dir"`
	AutoStart  bool          `toml:"autostart" mapstructure:"autostart"`
	StopOnExit bool          `toml:"stop_on_exit" mapstructure:"stop_on_exit"`
	URL        string        `toml:"url" mapstructure:"url"` // where the UI reaches the server once started
	Log        logger.Config `toml:"log" mapstructure:"log"`
}

type APIConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
	UIDir    string `toml:"ui_dir" mapstructure:"ui_dir"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// HistoryConfig lists sink DSNs: a sqlite path, postgres://, clickhouse:// or opensearch://.
type HistoryConfig struct {
	Enabled bool     `toml:"enabled" mapstructure:"enabled"`
	Sinks   []string `toml:"sinks" mapstructure:"sinks"`
}

type DeepLinkConfig struct {
	Scheme string `toml:"scheme" mapstructure:"scheme"`
}

type BrowserConfig struct {
	AllowedSchemes []string `toml:"allowed_schemes" mapstructure:"allowed_schemes"`
}

type TrayConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Tooltip string `toml:"tooltip" mapstructure:"tooltip"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "video-server")
	v.SetDefault("server.command", "node")
	v.SetDefault("server.args", []string{"server.js"})
	v.SetDefault("server.work_dir", "..")
	v.SetDefault("server.autostart", true)
	v.SetDefault("server.stop_on_exit", false)
	v.SetDefault("server.url", "http://localhost:3000")
	v.SetDefault("server.log.dir", "")
	v.SetDefault("server.log.stdout", "")
	v.SetDefault("server.log.stderr", "")
	v.SetDefault("server.log.max_size_mb", 0)
	v.SetDefault("server.log.max_backups", 0)
	v.SetDefault("server.log.max_age_days", 0)
	v.SetDefault("server.log.compress", false)

	v.SetDefault("api.listen", "127.0.0.1:8787")
	v.SetDefault("api.base_path", "/api")
	v.SetDefault("api.ui_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 0)
	v.SetDefault("log.max_backups", 0)
	v.SetDefault("log.max_age_days", 0)
	v.SetDefault("log.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9090")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.sinks", []string{})

	v.SetDefault("deeplink.scheme", "video-space")
	v.SetDefault("browser.allowed_schemes", []string{"http", "https"})

	v.SetDefault("tray.enabled", true)
	v.SetDefault("tray.tooltip", "Video Space")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// defaults are static and always decode
		panic(err)
	}
	return cfg
}

// Load reads path (TOML) over the defaults and applies VIDEOSPACE_* environment
// overrides. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields the shell cannot run without.
func (c *Config) Validate() error {
	var errs []error
	spec := c.ServerSpec()
	if err := spec.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	if !deeplink.ValidScheme(c.DeepLink.Scheme) {
		errs = append(errs, fmt.Errorf("deeplink: invalid scheme %q", c.DeepLink.Scheme))
	}
	if c.API.BasePath != "" && !strings.HasPrefix(c.API.BasePath, "/") {
		errs = append(errs, fmt.Errorf("api: base_path %q must start with /", c.API.BasePath))
	}
	if c.History.Enabled && len(c.History.Sinks) == 0 {
		errs = append(errs, errors.New("history: enabled without sinks"))
	}
	return errors.Join(errs...)
}

// ServerSpec converts the server section into a process spec.
func (c *Config) ServerSpec() process.Spec {
	return process.Spec{
		Name:    c.Server.Name,
		Command: c.Server.Command,
		Args:    append([]string(nil), c.Server.Args...),
		WorkDir: c.Server.WorkDir,
		Log:     c.Server.Log,
	}
}
