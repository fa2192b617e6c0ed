// Package config loads the YAML settings shared by the anvilmap tools.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/astei/anvilmap/coord"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "ANVILMAP_CONFIG"

type Config struct {
	// World is the world directory, the one holding level.dat and region/.
	World string `yaml:"world"`
	// Blocks is a CSV file with a "name" column listing block types in
	// index order.
	Blocks string    `yaml:"blocks"`
	Limits *Limits   `yaml:"limits,omitempty"`
	Log    LogConfig `yaml:"log"`
}

// Limits crops a world, in block coordinates, inclusive.
type Limits struct {
	North int `yaml:"north"`
	East  int `yaml:"east"`
	South int `yaml:"south"`
	West  int `yaml:"west"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if l := c.Limits; l != nil {
		if l.North > l.South {
			return fmt.Errorf("limits.north (%d) is south of limits.south (%d)", l.North, l.South)
		}
		if l.West > l.East {
			return fmt.Errorf("limits.west (%d) is east of limits.east (%d)", l.West, l.East)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, not %q", c.Log.Format)
	}
	return nil
}

// Edges returns the limits as block edges, or nil without limits.
func (l *Limits) Edges() *coord.Edges {
	if l == nil {
		return nil
	}
	return &coord.Edges{N: l.North, E: l.East, S: l.South, W: l.West}
}

// Logger builds a logger writing to w with the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
