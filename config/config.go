package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/rovlink/transport"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Role selects which end of the link a process plays.
type Role string

const (
	RoleController Role = "controller"
	RoleVehicle    Role = "vehicle"
)

// Environment variables applied on top of the file by Load.
const (
	EnvRemoteHost = "ROVLINK_REMOTE_HOST"
	EnvRemotePort = "ROVLINK_REMOTE_PORT"
	EnvLogLevel   = "ROVLINK_LOG_LEVEL"
)

// Config is the on-disk configuration of a rovlink endpoint.
type Config struct {
	Role      Role   `yaml:"role"`
	Remote    Remote `yaml:"remote"`
	LocalAddr string `yaml:"local_addr"`

	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Vehicle   VehicleConfig   `yaml:"vehicle"`
}

// Remote is the peer every datagram is sent to.
type Remote struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TransportConfig mirrors transport.Config with millisecond fields.
type TransportConfig struct {
	InitialTimeoutMs      int  `yaml:"initial_timeout_ms"`
	MinTimeoutMs          int  `yaml:"min_timeout_ms"`
	AutoPing              bool `yaml:"auto_ping"`
	AutoPingIntervalMs    int  `yaml:"auto_ping_interval_ms"`
	RateIntervalMs        int  `yaml:"rate_interval_ms"`
	ConnectionLostAfterMs int  `yaml:"connection_lost_after_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// VehicleConfig tunes the vehicle side telemetry sampler.
type VehicleConfig struct {
	StatsIntervalMs int    `yaml:"stats_interval_ms"`
	ProcRoot        string `yaml:"proc_root"`
	SysRoot         string `yaml:"sys_root"` // temperature sensor, wlan link file
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Role: RoleController,
		Remote: Remote{
			Host: "127.0.0.1",
			Port: 8500,
		},
		LocalAddr: ":0",
		Transport: TransportConfig{
			InitialTimeoutMs:      int(transport.DefaultInitialTimeout / time.Millisecond),
			MinTimeoutMs:          int(transport.DefaultMinTimeout / time.Millisecond),
			AutoPing:              true,
			AutoPingIntervalMs:    int(transport.DefaultAutoPingInterval / time.Millisecond),
			RateIntervalMs:        int(transport.DefaultRateInterval / time.Millisecond),
			ConnectionLostAfterMs: int(transport.DefaultConnectionLostAfter / time.Millisecond),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9108",
			Path:    "/metrics",
		},
		Vehicle: VehicleConfig{
			StatsIntervalMs: 1000,
			ProcRoot:        "/proc",
			SysRoot:         "/sys",
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
		"role":     cfg.Role,
		"remote":   cfg.RemoteAddr(),
	}).Debug("Configuration loaded")

	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRemoteHost); ok && v != "" {
		c.Remote.Host = v
	}
	if v, ok := lookup(EnvRemotePort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalidConfig, EnvRemotePort, v)
		}
		c.Remote.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks every field and reports the first problem found.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleController, RoleVehicle:
	default:
		return fmt.Errorf("%w: role must be %q or %q, got %q", ErrInvalidConfig, RoleController, RoleVehicle, c.Role)
	}

	if strings.TrimSpace(c.Remote.Host) == "" {
		return fmt.Errorf("%w: remote.host is empty", ErrInvalidConfig)
	}
	if c.Remote.Port < 1 || c.Remote.Port > 65535 {
		return fmt.Errorf("%w: remote.port must be in 1-65535, got %d", ErrInvalidConfig, c.Remote.Port)
	}

	if err := c.Transport.validate(); err != nil {
		return err
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Listen == "" {
			return fmt.Errorf("%w: metrics.listen is empty", ErrInvalidConfig)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("%w: metrics.path must start with /", ErrInvalidConfig)
		}
	}

	if c.Role == RoleVehicle {
		if c.Vehicle.StatsIntervalMs <= 0 {
			return fmt.Errorf("%w: vehicle.stats_interval_ms must be positive", ErrInvalidConfig)
		}
		if c.Vehicle.ProcRoot == "" {
			return fmt.Errorf("%w: vehicle.proc_root is empty", ErrInvalidConfig)
		}
		if c.Vehicle.SysRoot == "" {
			return fmt.Errorf("%w: vehicle.sys_root is empty", ErrInvalidConfig)
		}
	}

	return nil
}

func (t TransportConfig) validate() error {
	positive := map[string]int{
		"transport.initial_timeout_ms":       t.InitialTimeoutMs,
		"transport.min_timeout_ms":           t.MinTimeoutMs,
		"transport.auto_ping_interval_ms":    t.AutoPingIntervalMs,
		"transport.rate_interval_ms":         t.RateIntervalMs,
		"transport.connection_lost_after_ms": t.ConnectionLostAfterMs,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, v)
		}
	}
	if t.MinTimeoutMs > t.InitialTimeoutMs {
		return fmt.Errorf("%w: transport.min_timeout_ms (%d) exceeds initial_timeout_ms (%d)",
			ErrInvalidConfig, t.MinTimeoutMs, t.InitialTimeoutMs)
	}
	return nil
}

// RemoteAddr returns the peer as host:port.
func (c *Config) RemoteAddr() string {
	return fmt.Sprintf("%s:%d", c.Remote.Host, c.Remote.Port)
}

// StatsInterval is the vehicle sampling period.
func (c *Config) StatsInterval() time.Duration {
	return ms(c.Vehicle.StatsIntervalMs)
}

// ToTransport converts the file configuration into a transport.Config.
func (c *Config) ToTransport() transport.Config {
	cfg := transport.DefaultConfig()
	if c.LocalAddr != "" {
		cfg.LocalAddr = c.LocalAddr
	}
	cfg.InitialTimeout = ms(c.Transport.InitialTimeoutMs)
	cfg.MinTimeout = ms(c.Transport.MinTimeoutMs)
	cfg.AutoPing = c.Transport.AutoPing
	cfg.AutoPingInterval = ms(c.Transport.AutoPingIntervalMs)
	cfg.RateInterval = ms(c.Transport.RateIntervalMs)
	cfg.ConnectionLostAfter = ms(c.Transport.ConnectionLostAfterMs)
	return cfg
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Example is a commented configuration file with the default values.
const Example = `# rovlink configuration
role: controller          # controller | vehicle

remote:
  host: 127.0.0.1
  port: 8500
local_addr: ":0"

transport:
  initial_timeout_ms: 200
  min_timeout_ms: 20
  auto_ping: true
  auto_ping_interval_ms: 1000
  rate_interval_ms: 1000
  connection_lost_after_ms: 3000

log:
  level: info             # trace | debug | info | warn | error
  format: text            # text | json

metrics:
  enabled: false
  listen: 127.0.0.1:9108
  path: /metrics

vehicle:
  stats_interval_ms: 1000
  proc_root: /proc
  sys_root: /sys
`
