// Package config loads settings from, in increasing precedence: a YAML
// config file, VOKABEL_-prefixed environment variables and command-line
// flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "VOKABEL_"

// Config holds the runtime settings.
type Config struct {
	DB           string        `koanf:"db"`
	Listen       string        `koanf:"listen"`
	ReposDir     string        `koanf:"repos_dir"`
	SyncInterval time.Duration `koanf:"sync_interval"`
}

// Load assembles the configuration. cfgFile may be empty, in which case only
// environment variables and flags apply; a named but missing file is an error.
func Load(flags *pflag.FlagSet, cfgFile string) (Config, error) {
	k := koanf.New(".")

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", cfgFile, err)
		}
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", cfgFile, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
