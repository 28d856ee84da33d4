package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Service  ServiceConfig  `koanf:"service"`
	Server   ServerConfig   `koanf:"server"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Postgres PostgresConfig `koanf:"postgres"`
	Flags    FlagsConfig    `koanf:"flags"`
	Redis    RedisConfig    `koanf:"redis"`
	Logging  LoggingConfig  `koanf:"logging"`
	Labgen   LabgenConfig   `koanf:"labgen"`
}

type ServiceConfig struct {
	Name string `koanf:"name"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	MaxWorkers      int           `koanf:"max_workers"`
	MaxBacklog      int           `koanf:"max_backlog"`
	BacklogTimeout  time.Duration `koanf:"backlog_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type CatalogConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
}

type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

type FlagsConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// LabgenConfig selects a lab scenario. Case "0021" slows down
// recommendations of one product.
type LabgenConfig struct {
	Case string `koanf:"case"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxWorkers:      10,
			MaxBacklog:      100,
			BacklogTimeout:  time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			Timeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			Port: "5432",
		},
		Flags: FlagsConfig{
			Timeout: 2 * time.Second,
		},
		Redis: RedisConfig{
			Port: "6379",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Labgen: LabgenConfig{
			Case: "0000",
		},
	}
}

var envMappings = map[string]string{
	"otel_service_name":              "service.name",
	"recommendation_service_port":    "server.port",
	"recommendation_max_workers":     "server.max_workers",
	"recommendation_max_backlog":     "server.max_backlog",
	"recommendation_backlog_timeout": "server.backlog_timeout",
	"recommendation_shutdown_after":  "server.shutdown_timeout",
	"product_catalog_service_addr":   "catalog.addr",
	"product_catalog_timeout":        "catalog.timeout",
	"postgres_host":                  "postgres.host",
	"postgres_port":                  "postgres.port",
	"postgres_user":                  "postgres.user",
	"postgres_password":              "postgres.password",
	"postgres_db":                    "postgres.database",
	"feature_flag_service_addr":      "flags.addr",
	"feature_flag_timeout":           "flags.timeout",
	"redis_host":                     "redis.host",
	"redis_port":                     "redis.port",
	"redis_password":                 "redis.password",
	"log_level":                      "logging.level",
	"log_format":                     "logging.format",
	"log_file":                       "logging.file",
	"labgen_case":                    "labgen.case",
}

// envTransformFunc maps known environment variables to config paths and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds the configuration from defaults overridden by environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Service.Name == "" {
		errs = append(errs, errors.New("OTEL_SERVICE_NAME environment variable must be set"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("RECOMMENDATION_SERVICE_PORT environment variable must be set"))
	}
	if c.Server.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("max workers must be positive, got %d", c.Server.MaxWorkers))
	}
	if c.Server.MaxBacklog < 0 {
		errs = append(errs, fmt.Errorf("max backlog must not be negative, got %d", c.Server.MaxBacklog))
	}
	if c.Catalog.Addr == "" && c.Postgres.Host == "" {
		errs = append(errs, errors.New("either PRODUCT_CATALOG_SERVICE_ADDR or POSTGRES_HOST must be set"))
	}
	return errors.Join(errs...)
}

// UsesHTTPCatalog reports whether the catalog is a remote service rather than Postgres.
func (c *Config) UsesHTTPCatalog() bool {
	return c.Catalog.Addr != ""
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		c.Postgres.User,
		c.Postgres.Password,
		net.JoinHostPort(c.Postgres.Host, c.Postgres.Port),
		c.Postgres.Database,
	)
}

func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return net.JoinHostPort(c.Redis.Host, c.Redis.Port)
}
