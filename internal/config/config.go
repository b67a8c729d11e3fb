package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database PostgresConfig `mapstructure:"database"`
	Keycloak KeycloakConfig
	Redis    RedisConfig
	Sync     SyncConfig
	Dispatch DispatchConfig
	Gateway  GatewayConfig
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type KeycloakConfig struct {
	URL          string `mapstructure:"url"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SyncConfig controls outbound calls to subscribed report services.
type SyncConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DispatchConfig controls the fan-out of new values to subscriptions.
type DispatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// GatewayConfig covers the LoRa operator ingestion endpoint.
// AttributeURIs maps decoded payload keys to attribute URIs; keys
// without a mapping fall back to description-keyed attributes.
type GatewayConfig struct {
	AttributeURIs map[string]string `mapstructure:"attribute_uris"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("APTSENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults. Empty defaults register the env-only keys so
	// AutomaticEnv picks them up during Unmarshal.
	viper.SetDefault("database.host", "")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "aptsense")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "aptsense")
	viper.SetDefault("database.sslmode", "disable")

	// Keycloak defaults
	viper.SetDefault("keycloak.url", "")
	viper.SetDefault("keycloak.realm", "aptsense")
	viper.SetDefault("keycloak.client_id", "")
	viper.SetDefault("keycloak.client_secret", "")

	// Redis defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Outbound sync defaults
	viper.SetDefault("sync.timeout", "10s")
	viper.SetDefault("dispatch.workers", 4)

	// Known payload keys of the Digita/Elsys feed
	viper.SetDefault("gateway.attribute_uris", map[string]string{
		"temperature": "http://urn.fi/URN:NBN:fi:au:ucum:r73",
		"humidity":    "http://urn.fi/URN:NBN:fi:au:ucum:r74",
		"co2":         "http://urn.fi/URN:NBN:fi:au:ucum:r94",
	})

	viper.SetDefault("log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Keycloak.URL == "" {
		return fmt.Errorf("keycloak URL is required")
	}
	if config.Dispatch.Workers < 1 {
		return fmt.Errorf("dispatch.workers must be at least 1")
	}
	return nil
}
