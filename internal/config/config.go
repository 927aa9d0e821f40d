package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ReadinessProbe = "probe"
	ReadinessDelay = "delay"
)

// ServiceConfig names the background service and how to start it.
type ServiceConfig struct {
	Name    string   `json:"name" mapstructure:"name"`
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args,omitempty" mapstructure:"args"`
}

// ReadinessConfig controls the wait after spawning the service.
// Mode "delay" sleeps once for Delay; mode "probe" polls URL until it
// answers or Timeout elapses.
type ReadinessConfig struct {
	Mode     string `json:"mode" mapstructure:"mode"`
	URL      string `json:"url,omitempty" mapstructure:"url"`
	Delay    string `json:"delay,omitempty" mapstructure:"delay"`
	Interval string `json:"interval,omitempty" mapstructure:"interval"`
	Timeout  string `json:"timeout,omitempty" mapstructure:"timeout"`
}

type EnvironmentConfig struct {
	Path    string `json:"path" mapstructure:"path"`
	EnvFile string `json:"env_file,omitempty" mapstructure:"env_file"`
}

type EntryPointConfig struct {
	Program string   `json:"program" mapstructure:"program"`
	Args    []string `json:"args,omitempty" mapstructure:"args"`
	Dir     string   `json:"dir,omitempty" mapstructure:"dir"`
}

type Config struct {
	Service     ServiceConfig     `json:"service" mapstructure:"service"`
	Readiness   ReadinessConfig   `json:"readiness" mapstructure:"readiness"`
	Environment EnvironmentConfig `json:"environment" mapstructure:"environment"`
	EntryPoint  EntryPointConfig  `json:"entry_point" mapstructure:"entry_point"`
	Pause       bool              `json:"pause" mapstructure:"pause"`
	LogLevel    string            `json:"log_level,omitempty" mapstructure:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:    "ollama",
			Command: "ollama",
			Args:    []string{"serve"},
		},
		Readiness: ReadinessConfig{
			Mode:     ReadinessProbe,
			URL:      "http://127.0.0.1:11434/",
			Delay:    "3s",
			Interval: "100ms",
			Timeout:  "30s",
		},
		Environment: EnvironmentConfig{
			Path: "venv",
		},
		EntryPoint: EntryPointConfig{
			Program: "python",
			Args:    []string{"main.py"},
		},
		Pause:    true,
		LogLevel: "info",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("service.name", d.Service.Name)
	v.SetDefault("service.command", d.Service.Command)
	v.SetDefault("service.args", d.Service.Args)
	v.SetDefault("readiness.mode", d.Readiness.Mode)
	v.SetDefault("readiness.url", d.Readiness.URL)
	v.SetDefault("readiness.delay", d.Readiness.Delay)
	v.SetDefault("readiness.interval", d.Readiness.Interval)
	v.SetDefault("readiness.timeout", d.Readiness.Timeout)
	v.SetDefault("environment.path", d.Environment.Path)
	v.SetDefault("environment.env_file", d.Environment.EnvFile)
	v.SetDefault("entry_point.program", d.EntryPoint.Program)
	v.SetDefault("entry_point.args", d.EntryPoint.Args)
	v.SetDefault("entry_point.dir", d.EntryPoint.Dir)
	v.SetDefault("pause", d.Pause)
	v.SetDefault("log_level", d.LogLevel)
}

// Load reads path on top of the defaults and applies OLAUNCH_* environment
// overrides (e.g. OLAUNCH_SERVICE_NAME, OLAUNCH_READINESS_MODE).
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("OLAUNCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	return AtomicWriteFile(path, data, 0600)
}

// Validate checks the fields the launcher cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.Name) == "" {
		return fmt.Errorf("invalid config: service.name is empty")
	}
	if c.Service.Command == "" {
		c.Service.Command = c.Service.Name
	}
	if c.EntryPoint.Program == "" {
		return fmt.Errorf("invalid config: entry_point.program is empty")
	}
	switch c.Readiness.Mode {
	case ReadinessProbe:
		if c.Readiness.URL == "" {
			return fmt.Errorf("invalid config: readiness.url is required in %q mode", ReadinessProbe)
		}
	case ReadinessDelay:
	default:
		return fmt.Errorf("invalid config: readiness.mode %q (want %q or %q)", c.Readiness.Mode, ReadinessProbe, ReadinessDelay)
	}
	for key, val := range map[string]string{
		"readiness.delay":    c.Readiness.Delay,
		"readiness.interval": c.Readiness.Interval,
		"readiness.timeout":  c.Readiness.Timeout,
	} {
		if _, err := parseDuration(val); err != nil {
			return fmt.Errorf("invalid config: %s: %w", key, err)
		}
	}
	return nil
}

// DelayDuration returns the fixed post-spawn delay.
func (r ReadinessConfig) DelayDuration() time.Duration {
	d, _ := parseDuration(r.Delay)
	return d
}

func (r ReadinessConfig) IntervalDuration() time.Duration {
	d, _ := parseDuration(r.Interval)
	return d
}

func (r ReadinessConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(r.Timeout)
	return d
}

// parseDuration treats an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
