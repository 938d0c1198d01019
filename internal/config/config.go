// Package config loads and validates tally configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/tally/pkg/progress"
)

// Config captures all CLI configuration knobs loaded via Viper.
type Config struct {
	Monitor  MonitorSettings `mapstructure:"monitor"`
	Workload WorkloadConfig  `mapstructure:"workload"`
	Server   ServerConfig    `mapstructure:"server"`
	Logging  LoggingConfig   `mapstructure:"logging"`
}

// MonitorSettings mirrors progress.Config in config-file form.
type MonitorSettings struct {
	Total          int64          `mapstructure:"total"`
	UpdateInterval time.Duration  `mapstructure:"update_interval"`
	Mode           string         `mapstructure:"mode"`
	FixedWidth     bool           `mapstructure:"fixed_width"`
	Width          int            `mapstructure:"width"`
	Description    string         `mapstructure:"description"`
	Memory         string         `mapstructure:"memory"`
	Options        map[string]any `mapstructure:"options"`
	// Quiet suppresses the terminal/notebook display.
	Quiet bool `mapstructure:"quiet"`
	// LogProgress also logs every count change through zap.
	LogProgress bool `mapstructure:"log_progress"`
}

// WorkloadConfig sizes the synthetic producers driven by the CLI.
type WorkloadConfig struct {
	Workers int           `mapstructure:"workers"`
	Tasks   int           `mapstructure:"tasks"`
	Delay   time.Duration `mapstructure:"delay"`
	Outer   int           `mapstructure:"outer"`
	Inner   int           `mapstructure:"inner"`
}

// ServerConfig controls the optional status server.
type ServerConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied Viper instance, so command-line flags
// bound to v take precedence over the file and environment.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.total", 0)
	v.SetDefault("monitor.update_interval", progress.DefaultUpdateInterval)
	v.SetDefault("monitor.mode", string(progress.ModeAuto))
	v.SetDefault("monitor.fixed_width", false)
	v.SetDefault("monitor.width", 0)
	v.SetDefault("monitor.description", "")
	v.SetDefault("monitor.memory", string(progress.MemoryHost))
	v.SetDefault("monitor.options", map[string]any{})
	v.SetDefault("monitor.quiet", false)
	v.SetDefault("monitor.log_progress", false)
	v.SetDefault("workload.workers", 8)
	v.SetDefault("workload.tasks", 800)
	v.SetDefault("workload.delay", 2*time.Millisecond)
	v.SetDefault("workload.outer", 5)
	v.SetDefault("workload.inner", 50)
	v.SetDefault("server.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Workload.Workers <= 0 {
		return fmt.Errorf("workload.workers must be > 0")
	}
	if c.Workload.Tasks < 0 {
		return fmt.Errorf("workload.tasks must be >= 0")
	}
	if c.Workload.Outer < 0 || c.Workload.Inner < 0 {
		return fmt.Errorf("workload.outer and workload.inner must be >= 0")
	}
	if c.Workload.Delay < 0 {
		return fmt.Errorf("workload.delay must be >= 0")
	}
	if _, err := c.MonitorConfig(); err != nil {
		return err
	}
	return nil
}

// MonitorConfig converts the monitor section into a progress.Config. The
// caller still picks the renderer. Field limits are checked the same way
// progress.Open checks them.
func (c Config) MonitorConfig() (progress.Config, error) {
	mode, err := progress.ParseDisplayMode(c.Monitor.Mode)
	if err != nil {
		return progress.Config{}, fmt.Errorf("monitor.mode: %w", err)
	}
	cfg := progress.Config{
		Total:          c.Monitor.Total,
		UpdateInterval: c.Monitor.UpdateInterval,
		Mode:           mode,
		FixedWidth:     c.Monitor.FixedWidth,
		Width:          c.Monitor.Width,
		Description:    c.Monitor.Description,
		Memory:         progress.Memory(strings.ToLower(c.Monitor.Memory)),
		Options:        c.Monitor.Options,
	}
	check := cfg
	check.RendererFactory = func(progress.RenderOptions) (progress.Renderer, error) { return nil, nil }
	if err := check.Validate(); err != nil {
		return progress.Config{}, fmt.Errorf("monitor: %w", err)
	}
	return cfg, nil
}
