// Package config loads fenrird's runtime configuration. It generalizes the
// teacher's hardcoded listen address and port (cmd/main.go: "0.0.0.0", 9001)
// into env/flag-driven settings the way the pack's market-making bot
// (0xtitan6-polymarket-mm/internal/config) loads its own config: viper for
// the env side, with flag overrides bound on top.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of settings fenrird needs to start.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	ListenPort int    `mapstructure:"listen_port"`
	Workers    int    `mapstructure:"workers"`
	LogLevel   string `mapstructure:"log_level"`

	FeedAddr string `mapstructure:"feed_addr"`
	FeedPort int    `mapstructure:"feed_port"`

	MetricsPort int `mapstructure:"metrics_port"`
}

const envPrefix = "FENRIR"

// Load reads configuration from FENRIR_* environment variables, with flags
// parsed from args taking precedence over env vars, which take precedence
// over the defaults below.
func Load(flags *pflag.FlagSet, args []string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", "0.0.0.0")
	v.SetDefault("listen_port", 9001)
	v.SetDefault("workers", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("feed_addr", "0.0.0.0")
	v.SetDefault("feed_port", 9002)
	v.SetDefault("metrics_port", 9090)

	flags.String("listen-addr", v.GetString("listen_addr"), "TCP address to accept order-entry connections on")
	flags.Int("listen-port", v.GetInt("listen_port"), "TCP port to accept order-entry connections on")
	flags.Int("workers", v.GetInt("workers"), "number of connection-handling workers")
	flags.String("log-level", v.GetString("log_level"), "zerolog level: debug, info, warn, error")
	flags.String("feed-addr", v.GetString("feed_addr"), "address for the read-only websocket feed")
	flags.Int("feed-port", v.GetInt("feed_port"), "port for the read-only websocket feed")
	flags.Int("metrics-port", v.GetInt("metrics_port"), "port for the Prometheus /metrics endpoint")

	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// flags use dashed CLI-conventional names but Config's mapstructure tags
	// (and v.SetDefault above) use underscores; BindPFlags would key each
	// binding by the dashed flag name, which v.Unmarshal then never finds.
	// Bind each flag explicitly to the underscore key it must surface as.
	dashedToKey := map[string]string{
		"listen-addr":  "listen_addr",
		"listen-port":  "listen_port",
		"workers":      "workers",
		"log-level":    "log_level",
		"feed-addr":    "feed_addr",
		"feed-port":    "feed_port",
		"metrics-port": "metrics_port",
	}
	for flagName, key := range dashedToKey {
		if err := v.BindPFlag(key, flags.Lookup(flagName)); err != nil {
			return nil, fmt.Errorf("bind flag %q: %w", flagName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded configuration for obviously unusable values.
func (c *Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port out of range: %d", c.ListenPort)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}
