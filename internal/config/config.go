// Package config loads taskhouse settings from defaults, an optional YAML
// file, a .env file and TASKHOUSE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/isoweek"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigMissing is returned when an explicitly named config file does
// not exist.
var ErrConfigMissing = errors.New("config file not found")

const (
	EnvConfigPath = "TASKHOUSE_CONFIG"
	defaultFile   = "taskhouse.yaml"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Stats    StatsConfig    `yaml:"stats"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// TrustedProxies lists the addresses or CIDR ranges of reverse proxies
	// whose forwarding headers name the real client.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type StatsConfig struct {
	Timezone string `yaml:"timezone"`
	Weeks    int    `yaml:"weeks"`
}

func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "taskhouse.db"},
		Server:   ServerConfig{Port: 8080},
		Session:  SessionConfig{TTL: 30 * 24 * time.Hour},
		Stats:    StatsConfig{Timezone: "Local", Weeks: 8},
	}
}

// Load builds the configuration. path may be empty, in which case
// TASKHOUSE_CONFIG and then ./taskhouse.yaml are tried; only a path given
// explicitly (flag or environment) has to exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	explicit := path != ""
	if !explicit {
		if _, err := os.Stat(defaultFile); err == nil {
			path = defaultFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
			}
		} else if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TASKHOUSE_LOG_LEVEL", &c.Log.Level)
	str("TASKHOUSE_LOG_FORMAT", &c.Log.Format)
	str("TASKHOUSE_DB_DRIVER", &c.Database.Driver)
	str("TASKHOUSE_DB_DSN", &c.Database.DSN)
	str("TASKHOUSE_TIMEZONE", &c.Stats.Timezone)

	if v, ok := lookup("TASKHOUSE_TRUSTED_PROXIES"); ok && v != "" {
		c.Server.TrustedProxies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Server.TrustedProxies = append(c.Server.TrustedProxies, p)
			}
		}
	}

	if v, ok := lookup("TASKHOUSE_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKHOUSE_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("TASKHOUSE_SESSION_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKHOUSE_SESSION_TTL: %w", err)
		}
		c.Session.TTL = ttl
	}
	if v, ok := lookup("TASKHOUSE_STATS_WEEKS"); ok && v != "" {
		weeks, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKHOUSE_STATS_WEEKS: %w", err)
		}
		c.Stats.Weeks = weeks
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := database.ParseDialect(c.Database.Driver); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Stats.Weeks < 1 || c.Stats.Weeks > isoweek.MaxWindow {
		return fmt.Errorf("stats.weeks must be between 1 and %d, got %d", isoweek.MaxWindow, c.Stats.Weeks)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves stats.timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Stats.Timezone == "" || c.Stats.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil {
		return nil, fmt.Errorf("stats.timezone: %w", err)
	}
	return loc, nil
}

// TrustedProxyPrefixes parses server.trusted_proxies. A bare address is
// taken as a single-host range.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, s := range c.Server.TrustedProxies {
		if prefix, err := netip.ParsePrefix(s); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: %q is not an address or CIDR range", s)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
