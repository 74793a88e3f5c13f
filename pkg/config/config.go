// Package config loads cronflow configuration with viper. Values come from
// a YAML, JSON or TOML file and may be overridden by CRONFLOW_* environment
// variables, for example CRONFLOW_SCHEDULER_THREAD_POOL_SIZE=8.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/common/validation"
	"github.com/vnykmshr/cronflow/pkg/logger"
	"github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "CRONFLOW"

// ErrFileNotFound is returned by Load for a missing file.
var ErrFileNotFound = errors.New("config file not found")

// Config is the top-level configuration.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       logger.Config   `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	History   HistoryConfig   `mapstructure:"history"`
	Tasks     []TaskConfig    `mapstructure:"tasks"`
}

// SchedulerConfig configures the manager.
type SchedulerConfig struct {
	ThreadPoolSize      int           `mapstructure:"thread_pool_size"`
	GracefulStopTimeout time.Duration `mapstructure:"graceful_stop_timeout"`
	Location            string        `mapstructure:"location"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Name    string `mapstructure:"name"`
}

// HistoryConfig selects where firing records go. An empty RedisAddr keeps
// them in memory.
type HistoryConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	Stream    string `mapstructure:"stream"`
	MaxLen    int64  `mapstructure:"max_len"`
	Capacity  int    `mapstructure:"capacity"`
}

// TaskConfig declares one task. Exactly one of Cron, FixedRate and
// FixedDelay must be set. Action names the built-in callback; Args are
// passed to it.
type TaskConfig struct {
	Name         string            `mapstructure:"name"`
	Cron         string            `mapstructure:"cron"`
	FixedRate    time.Duration     `mapstructure:"fixed_rate"`
	FixedDelay   time.Duration     `mapstructure:"fixed_delay"`
	InitialDelay time.Duration     `mapstructure:"initial_delay"`
	Action       string            `mapstructure:"action"`
	Args         map[string]string `mapstructure:"args"`
}

// TriggerSpec converts the task's trigger fields.
func (t TaskConfig) TriggerSpec() scheduler.TriggerSpec {
	return scheduler.TriggerSpec{
		Cron:         t.Cron,
		FixedRate:    t.FixedRate,
		FixedDelay:   t.FixedDelay,
		InitialDelay: t.InitialDelay,
	}
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"scheduler.thread_pool_size":      4,
		"scheduler.graceful_stop_timeout": "30s",
		"scheduler.location":              "Local",
		"log.level":                       "info",
		"log.format":                      logger.FormatJSON,
		"metrics.enabled":                 true,
		"metrics.addr":                    ":9090",
		"metrics.name":                    "cronflow",
		"history.stream":                  "cronflow:history",
		"history.max_len":                 1000,
		"history.capacity":                256,
	}
}

// Load reads the file at path. The format follows the file extension.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// LoadFromBytes reads configuration of the given type ("yaml", "json", ...).
func LoadFromBytes(data []byte, configType string) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and every task trigger. Task errors carry
// the task name and unwrap to the scheduler's error sentinels.
func (c *Config) Validate() error {
	if c.Scheduler.ThreadPoolSize <= 0 {
		return gferrors.NewValidationError("config", "scheduler.thread_pool_size",
			c.Scheduler.ThreadPoolSize, "must be positive")
	}
	if c.Scheduler.GracefulStopTimeout < 0 {
		return gferrors.NewValidationError("config", "scheduler.graceful_stop_timeout",
			c.Scheduler.GracefulStopTimeout, "cannot be negative")
	}
	if _, err := c.Scheduler.LoadLocation(); err != nil {
		return gferrors.NewValidationError("config", "scheduler.location",
			c.Scheduler.Location, err.Error())
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(c.Tasks))
	for i, t := range c.Tasks {
		if err := validation.ValidateNotEmpty("config", fmt.Sprintf("tasks[%d].name", i), t.Name); err != nil {
			return err
		}
		if _, dup := names[t.Name]; dup {
			return gferrors.NewValidationError("config", fmt.Sprintf("tasks[%d].name", i), t.Name, "duplicate task name")
		}
		names[t.Name] = struct{}{}

		if err := t.TriggerSpec().Validate(); err != nil {
			return fmt.Errorf("task %s: %w", t.Name, err)
		}
	}
	return nil
}

// LoadLocation resolves the configured time zone. Empty means Local.
func (s SchedulerConfig) LoadLocation() (*time.Location, error) {
	if s.Location == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Location)
}

// ManagerConfig converts the scheduler section.
func (c *Config) ManagerConfig() (scheduler.Config, error) {
	loc, err := c.Scheduler.LoadLocation()
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		ThreadPoolSize:      c.Scheduler.ThreadPoolSize,
		GracefulStopTimeout: c.Scheduler.GracefulStopTimeout,
		Location:            loc,
	}, nil
}
