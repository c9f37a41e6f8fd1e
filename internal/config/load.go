package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "NEPALIJETS"

var defaults = map[string]interface{}{
	"server.port":                     8080,
	"server.log_level":                "info",
	"server.shutdown_timeout_seconds": 15,
	"auth.token_lifetime_minutes":     60,
	"database.max_open_conns":         25,
	"database.max_idle_conns":         25,
	"learning.default_path_length":    10,
	"learning.max_path_length":        50,
	"learning.timezone":               "Asia/Kathmandu",
}

// keys without a default still need binding so that environment variables reach Unmarshal
var boundKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"learning.scheduler.default_ease_factor",
	"learning.scheduler.min_ease_factor",
	"learning.scheduler.pass_threshold",
	"learning.scheduler.first_interval",
	"learning.scheduler.second_interval",
	"learning.scheduler.failure_interval",
	"learning.scheduler.mastery_repetitions",
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path looks
// for an optional config.yaml in the working directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := cfg.Learning.Location(); err != nil {
		return nil, fmt.Errorf("config validation failed: invalid learning.timezone: %w", err)
	}

	return &cfg, nil
}
