// Package config handles configuration loading for cmd/assetgraphd from
// YAML files and environment variables using Viper. The property graph
// engine itself never imports this package — it takes every collaborator
// (logger, propagation flag) as explicit constructor arguments, per §9's
// "pass both as explicit context" note; this package only configures the
// demo process around it.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for cmd/assetgraphd.
type Config struct {
	Debug     DebugConfig     `mapstructure:"debug"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Container ContainerConfig `mapstructure:"container"`
	Log       LogConfig       `mapstructure:"log"`
}

// DebugConfig holds the debug introspection HTTP server's settings.
type DebugConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the listen address string.
func (d DebugConfig) Address() string { return fmt.Sprintf("%s:%d", d.Host, d.Port) }

// NATSConfig holds the optional event publisher's connection settings.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// ContainerConfig holds Container-level defaults.
type ContainerConfig struct {
	PropagateChangesFromBase bool `mapstructure:"propagate_changes_from_base"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. It
// searches for config.yaml in the paths: ./configs, /etc/assetgraph, and
// $HOME/.assetgraph.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("debug.host", "127.0.0.1")
	v.SetDefault("debug.port", 8090)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("container.propagate_changes_from_base", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/assetgraph")
	v.AddConfigPath("$HOME/.assetgraph")

	v.SetEnvPrefix("ASSETGRAPH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
