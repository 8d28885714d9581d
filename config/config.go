// Package config loads command configuration and seed catalogs with koanf.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then LIBRARY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"library-lending/library"
	"library-lending/logger"
)

// EnvPrefix marks environment variables read by Load. LIBRARY_LOG_LEVEL
// maps to log.level, LIBRARY_SEED_PATH to seed.path and so on.
const EnvPrefix = "LIBRARY_"

// DefaultConfigPaths are tried in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"library.yaml",
	"library.yml",
}

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Recommend RecommendConfig `koanf:"recommend"`
	Seed      SeedConfig      `koanf:"seed"`
}

type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"` // empty picks by terminal
	AddSource bool   `koanf:"add_source"`
}

type RecommendConfig struct {
	Strategy string `koanf:"strategy"`
}

type SeedConfig struct {
	Path string `koanf:"path"`
}

func defaultConfig() *Config {
	return &Config{
		Log:       LogConfig{Level: "info"},
		Recommend: RecommendConfig{Strategy: library.FrequencyBased{}.Name()},
	}
}

// Load builds the configuration. An empty path searches DefaultConfigPaths;
// an explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps LIBRARY_SECTION_FIELD to section.field. Only the
// first underscore after the prefix separates the section.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	return section + "." + field
}

// Validate rejects unknown log levels, log formats and strategies.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, library.InvalidArgumentf("log.level: unknown level %q", c.Log.Level))
	}
	if !logger.ValidFormat(c.Log.Format) {
		errs = append(errs, library.InvalidArgumentf("log.format: unknown format %q", c.Log.Format))
	}
	if _, err := library.StrategyByName(c.Recommend.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("recommend.strategy: %w", err))
	}
	return errors.Join(errs...)
}

// Strategy resolves the configured recommendation strategy.
func (c *Config) Strategy() library.Strategy {
	s, err := library.StrategyByName(c.Recommend.Strategy)
	if err != nil {
		return library.FrequencyBased{}
	}
	return s
}
