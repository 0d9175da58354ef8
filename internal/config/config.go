// Package config loads the search service configuration from the environment.
package config

import (
	"fmt"

	pkgconfig "github.com/abdulsami0103-cmd/MenonTrucks/pkg/config"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/database"
)

// Engine selection values.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8010"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine     string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`

	// PostgreSQL record store
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"menon"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"menon_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"menontrucks"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Redis cache
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"search-service"`

	// Tracing
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SearchEngine != EngineElasticsearch && c.SearchEngine != EngineMemory {
		return fmt.Errorf("SEARCH_ENGINE must be %q or %q, got %q", EngineElasticsearch, EngineMemory, c.SearchEngine)
	}
	if c.OTELSampleRate < 0.0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// PostgresConfig builds the connection pool configuration.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return &pg
}

// RedisConfig builds the Redis client configuration.
func (c *Config) RedisConfig() database.RedisConfig {
	r := database.DefaultRedisConfig()
	r.Host = c.RedisHost
	r.Port = c.RedisPort
	r.Password = c.RedisPassword
	r.DB = c.RedisDB
	return r
}
