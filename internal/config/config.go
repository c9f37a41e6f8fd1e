package config

import (
	"time"
	// the default timezone must resolve on hosts without a zoneinfo database
	_ "time/tzdata"

	"github.com/nepalijets/nepalijets-api/internal/domain/srs"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Learning LearningConfig `mapstructure:"learning" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error fatal"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains the settings used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LearningConfig contains the tunables of the scheduling core.
type LearningConfig struct {
	DefaultPathLength int              `mapstructure:"default_path_length" validate:"required,gte=1"`
	MaxPathLength     int              `mapstructure:"max_path_length"     validate:"required,gtefield=DefaultPathLength"`
	Timezone          string           `mapstructure:"timezone"            validate:"required"`
	Scheduler         srs.ParamsConfig `mapstructure:"scheduler"`
}

// Location returns the time zone that defines a learner's calendar day.
func (c LearningConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
