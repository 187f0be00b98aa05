// Package config loads collector and client settings with viper. Values
// come from an optional YAML file and ACCOUNTS_METRICS_* environment
// variables, on top of the defaults below.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Client   ClientConfig   `mapstructure:"client"`
}

type AppConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	// Path to the SQLite file. Empty means the platform data directory.
	Path string `mapstructure:"path"`
}

type ClientConfig struct {
	Collector       string        `mapstructure:"collector"`
	Context         string        `mapstructure:"context"`
	Lang            string        `mapstructure:"lang"`
	InactivityFlush time.Duration `mapstructure:"inactivity_flush"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
}

// Load reads configuration. An empty configPath looks for config.yaml in
// the working directory; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ACCOUNTS_METRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.development", false)

	v.SetDefault("server.address", "127.0.0.1:8123")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.path", "")

	v.SetDefault("client.collector", "http://127.0.0.1:8123")
	v.SetDefault("client.context", "web")
	v.SetDefault("client.lang", "")
	v.SetDefault("client.inactivity_flush", "10m")
	v.SetDefault("client.send_timeout", "30s")
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Client.InactivityFlush <= 0 {
		return fmt.Errorf("client.inactivity_flush must be positive")
	}
	if c.Client.SendTimeout <= 0 {
		return fmt.Errorf("client.send_timeout must be positive")
	}
	return nil
}
