// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultUploadsDir     = "uploads"
	DefaultJWTExpiresIn   = "24h"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "advocrm"
	DefaultPGSSLMode      = "disable"
	DefaultGatewayTimeout = 5

	DefaultCalendarTimezone = "America/Fortaleza"
	DefaultCalendarTimeout  = 5
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Admin     AdminConfig     `toml:"admin"`
	Auth      AuthConfig      `toml:"auth"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Uploads   UploadsConfig   `toml:"uploads"`
	Evolution EvolutionConfig `toml:"evolution"`
	Calendar  CalendarConfig  `toml:"calendar"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AdminConfig holds the initial admin account seeded on first start.
type AdminConfig struct {
	Name     string `toml:"name"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// UploadsConfig holds the client document upload directory.
type UploadsConfig struct {
	Dir string `toml:"dir"`
}

// EvolutionConfig holds the Evolution API gateway base URL, API key,
// and the per-call timeout in seconds.
type EvolutionConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CalendarConfig holds the Google Calendar integration settings. An empty
// calendar_id disables the integration; appointments then skip event
// creation and busy slots come from the database alone.
type CalendarConfig struct {
	BaseURL        string `toml:"base_url"`
	CalendarID     string `toml:"calendar_id"`
	Token          string `toml:"token"`
	Timezone       string `toml:"timezone"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Name:     "Administrador",
			Email:    "admin@example.com",
			Password: "change-your-password-here",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Uploads: UploadsConfig{
			Dir: DefaultUploadsDir,
		},
		Evolution: EvolutionConfig{
			TimeoutSeconds: DefaultGatewayTimeout,
		},
		Calendar: CalendarConfig{
			Timezone:       DefaultCalendarTimezone,
			TimeoutSeconds: DefaultCalendarTimeout,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
