package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type SyncConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
	MaxRetries   int           `mapstructure:"max_retries"`
	SoftDeadline time.Duration `mapstructure:"soft_deadline"`
}

type EngineConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CallbackBaseURL string        `mapstructure:"callback_base_url"`
}

type GeneratorConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type Config struct {
	DatabaseURL   string          `mapstructure:"database_url"`
	RedisURL      string          `mapstructure:"redis_url"`
	ServerPort    string          `mapstructure:"server_port"`
	JWTSecret     string          `mapstructure:"jwt_secret"`
	CredentialTTL time.Duration   `mapstructure:"credential_ttl"`
	SweepSpec     string          `mapstructure:"sweep_spec"`
	Sync          SyncConfig      `mapstructure:"sync"`
	Engine        EngineConfig    `mapstructure:"engine"`
	Generator     GeneratorConfig `mapstructure:"generator"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}
	if config.CredentialTTL == 0 {
		config.CredentialTTL = 24 * time.Hour
	}
	if config.SweepSpec == "" {
		config.SweepSpec = "@every 1h"
	}
	if config.Sync.PollInterval == 0 {
		config.Sync.PollInterval = 3 * time.Second
	}
	if config.Sync.MaxBackoff == 0 {
		config.Sync.MaxBackoff = 30 * time.Second
	}
	if config.Sync.MaxRetries == 0 {
		config.Sync.MaxRetries = 5
	}
	if config.Sync.SoftDeadline == 0 {
		config.Sync.SoftDeadline = 10 * time.Minute
	}
	if config.Engine.RequestTimeout == 0 {
		config.Engine.RequestTimeout = 30 * time.Second
	}
	if config.Generator.RequestTimeout == 0 {
		config.Generator.RequestTimeout = 60 * time.Second
	}

	return &config
}
