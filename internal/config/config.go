// Package config loads statsdaggd's TOML configuration, the same
// format library (BurntSushi/toml) the teacher repo depends on for its
// own config.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend names a downstream writer backend. More than one may be
// enabled at once; Fanout broadcasts to all of them.
type Backend struct {
	Kind string `toml:"kind"` // "graphite", "kafka", "amqp", "cloudwatch"

	// graphite
	Addresses []string `toml:"addresses"`

	// kafka
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`

	// amqp
	AMQPURL      string `toml:"amqp_url"`
	Exchange     string `toml:"exchange"`
	RoutingKey   string `toml:"routing_key"`

	// cloudwatch
	Namespace string `toml:"namespace"`
	Region    string `toml:"region"`
}

// Config is the top-level daemon configuration.
type Config struct {
	ListenUDP     string `toml:"listen_udp"`
	AdminListen   string `toml:"admin_listen"`
	LogLevel      string `toml:"log_level"`
	FlushInterval int64  `toml:"flush_interval_ms"`
	Percentile    int    `toml:"percentile"`
	SpoolCapacity int    `toml:"spool_capacity"`

	Backends []Backend `toml:"backend"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		ListenUDP:     ":8125",
		AdminListen:   ":8126",
		LogLevel:      "info",
		FlushInterval: 10000,
		Percentile:    90,
		SpoolCapacity: 10000,
		Backends: []Backend{
			{Kind: "graphite", Addresses: []string{"localhost:2003"}},
		},
	}
}

// Load reads and decodes a TOML config file from path, filling in any
// field Default() would set that the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	if cfg.FlushInterval < 1000 {
		return Config{}, fmt.Errorf("flush_interval_ms must be >= 1000, got %d", cfg.FlushInterval)
	}
	return cfg, nil
}

// FlushIntervalDuration returns FlushInterval as a time.Duration.
func (c Config) FlushIntervalDuration() time.Duration {
	return time.Duration(c.FlushInterval) * time.Millisecond
}
