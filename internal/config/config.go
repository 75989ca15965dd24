package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/apiwatch/apiwatch/internal/obs"
	pginfra "github.com/apiwatch/apiwatch/internal/repository/postgres"
)

type MonitorCfg struct {
	Interval           time.Duration `mapstructure:"interval"`
	LatencyThresholdMS int64         `mapstructure:"latency_threshold_ms"`
	DefaultTimeout     time.Duration `mapstructure:"default_timeout"`
	MaxConcurrency     int           `mapstructure:"max_concurrency"`
	UserAgent          string        `mapstructure:"user_agent"`
	VerifyTLS          bool          `mapstructure:"verify_tls"`
	FollowRedirects    bool          `mapstructure:"follow_redirects"`
}

type SMTPCfg struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	To         []string      `mapstructure:"to"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

type ServerCfg struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTELCfg struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type Config struct {
	DB       pginfra.Config `mapstructure:"db"`
	Monitor  MonitorCfg     `mapstructure:"monitor"`
	SMTP     SMTPCfg        `mapstructure:"smtp"`
	Server   ServerCfg      `mapstructure:"server"`
	OTEL     OTELCfg        `mapstructure:"otel"`
	LogLevel string         `mapstructure:"log_level"`
	LogDev   bool           `mapstructure:"log_dev"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.LogLevel,
		Pretty: c.LogDev,
		App:    "apiwatch",
		Ver:    "1.0",
	}
}

func (c *Config) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.Endpoint,
		ServiceName: "apiwatch",
		SampleRatio: c.OTEL.SampleRatio,
	}
}

// Validate fails fast on configuration the engine cannot run with.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return errors.New("db.dsn is required")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.LatencyThresholdMS <= 0 {
		return fmt.Errorf("monitor.latency_threshold_ms must be positive, got %d", c.Monitor.LatencyThresholdMS)
	}
	if c.Monitor.DefaultTimeout <= 0 {
		return fmt.Errorf("monitor.default_timeout must be positive, got %s", c.Monitor.DefaultTimeout)
	}
	if c.Monitor.MaxConcurrency <= 0 {
		return fmt.Errorf("monitor.max_concurrency must be positive, got %d", c.Monitor.MaxConcurrency)
	}
	return nil
}
