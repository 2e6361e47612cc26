// Package config resolves runtime settings from a config file, THYME_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Store struct {
		Driver string
		DSN    string
	}
	StatementsDir string
	SeedFile      string
	LogLevel      string
	WatchSchedule string
}

// flag name -> config key
var flagKeys = map[string]string{
	"driver":    "store.driver",
	"dsn":       "store.dsn",
	"dir":       "statements.dir",
	"seed":      "seed.file",
	"log-level": "log.level",
	"schedule":  "watch.schedule",
}

// Build reads cfgFile (or thyme.yaml from the working directory when empty)
// and overlays the environment and any flags present in flags.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.dsn", "postgres://localhost/thyme?sslmode=disable")
	v.SetDefault("statements.dir", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("watch.schedule", "@every 10m")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("thyme")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("THYME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		StatementsDir: v.GetString("statements.dir"),
		SeedFile:      v.GetString("seed.file"),
		LogLevel:      v.GetString("log.level"),
		WatchSchedule: v.GetString("watch.schedule"),
	}
	cfg.Store.Driver = strings.ToLower(v.GetString("store.driver"))
	cfg.Store.DSN = v.GetString("store.dsn")

	switch cfg.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return cfg, nil
}
