// Package config assembles the effective scrubgate configuration from
// built-in defaults, an optional TOML file and command-line overrides, in
// that order of precedence.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"scrubgate/pkg/engine"
)

// Config holds the full configuration for one scrubgate instance. The
// Rewrite section is shared with the engine and the control plane; Server
// and Redis only matter in server mode.
type Config struct {
	Rewrite engine.RewriteOptions `toml:"rewrite"`
	Server  ServerConfig          `toml:"server"`
	Redis   RedisConfig           `toml:"redis"`
}

type ServerConfig struct {
	TCPAddr  string `toml:"tcp_addr"`
	UDPAddr  string `toml:"udp_addr"`
	HTTPAddr string `toml:"http_addr"`

	// BufferSize is the ring capacity in lines, a power of two.
	BufferSize uint64 `toml:"buffer_size"`
}

type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	// Channel carries reload notifications; Key holds the manifest.
	Channel string `toml:"channel"`
	Key     string `toml:"key"`
}

// DefaultConfig returns the built-in defaults: loopback replacements,
// leading trim and the redacted-line shortcut on, everything else off.
func DefaultConfig() *Config {
	return &Config{
		Rewrite: engine.RewriteOptions{
			IPv4Replacement:  "127.0.0.1",
			IPv6Replacement:  "::1",
			HostReplacement:  "localhost",
			TrimLeading:      true,
			OptimizeAuthUser: true,
		},
		Server: ServerConfig{
			TCPAddr:    ":8081",
			UDPAddr:    ":8082",
			HTTPAddr:   ":8080",
			BufferSize: 65536,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Channel: "scrubgate_updates",
			Key:     "scrubgate_config",
		},
	}
}

// Load returns the defaults overlaid with the TOML file at path. Keys
// absent from the file keep their default values, so a config file only
// has to name what it changes. An empty path returns the plain defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
