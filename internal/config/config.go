// Package config loads the runtime configuration of server-identity from the environment.
// Values may be provided through a .env file which is loaded before the environment is read.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	envFile = ".env"

	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// DatabaseConfig holds the connection settings of the Postgres database.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns the connection string for pgxpool.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Password, c.Name)
}

// MailConfig holds the Mailgun settings used by the mail manager.
type MailConfig struct {
	Domain string
	APIKey string
	From   string
}

// Config is the complete configuration of the service. It is built once at startup
// and handed to the constructors of the managers, the store and the identity service.
type Config struct {
	Port         string
	Environment  string
	LogLevel     string
	StoreBackend string
	Database     DatabaseConfig
	Mail         MailConfig

	// TokenKeys are base64url encoded 32 byte keys, newest first.
	TokenKeys          []string
	ActivationTokenTTL time.Duration

	ClaimsSecret   string
	ClaimsTokenTTL time.Duration
	ClaimsLeeway   time.Duration

	KeyPairPath     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	FrontendURL string
	PlatformKey string

	PasswordGracePeriod  time.Duration
	AllowedMailProviders []string
	EmailValidationType  string
}

// IsProduction reports whether notifications should actually be delivered.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads the .env file if present and builds the configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Info("No .env file found, using environment variables from system")
	} else {
		log.Info("Loaded environment variables from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration using the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	var err error
	cfg := &Config{
		Port:         valueOr(getenv("PORT"), ":8080"),
		Environment:  valueOr(getenv("ENVIRONMENT"), "development"),
		LogLevel:     valueOr(getenv("LOG_LEVEL"), "INFO"),
		StoreBackend: valueOr(getenv("STORE_BACKEND"), StoreBackendPostgres),
		Database: DatabaseConfig{
			Host:     getenv("DB_HOST"),
			Port:     getenv("DB_PORT"),
			User:     getenv("DB_USER"),
			Password: getenv("DB_PASS"),
			Name:     getenv("DB_NAME"),
		},
		Mail: MailConfig{
			Domain: getenv("MAILGUN_DOMAIN"),
			APIKey: getenv("MAILGUN_API_KEY"),
			From:   valueOr(getenv("MAIL_FROM"), "Server Identity <team@mail.server-identity.tech>"),
		},
		TokenKeys:            splitList(getenv("TOKEN_KEYS")),
		ClaimsSecret:         getenv("CLAIMS_SECRET"),
		KeyPairPath:          valueOr(getenv("KEY_PAIR_PATH"), "keys/ed25519.key"),
		FrontendURL:          strings.TrimSuffix(valueOr(getenv("FRONTEND_URL"), "http://localhost:5173"), "/"),
		PlatformKey:          getenv("PLATFORM_KEY"),
		AllowedMailProviders: splitList(getenv("ALLOWED_MAIL_PROVIDERS")),
		EmailValidationType:  valueOr(getenv("EMAIL_VALIDATION_TYPE"), "regex"),
	}

	durations := []struct {
		name     string
		fallback time.Duration
		target   *time.Duration
	}{
		{"ACTIVATION_TOKEN_TTL", 24 * time.Hour, &cfg.ActivationTokenTTL},
		{"CLAIMS_TOKEN_TTL", 30 * time.Minute, &cfg.ClaimsTokenTTL},
		{"CLAIMS_LEEWAY", 2 * time.Minute, &cfg.ClaimsLeeway},
		{"ACCESS_TOKEN_TTL", 24 * time.Hour, &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", 168 * time.Hour, &cfg.RefreshTokenTTL},
	}
	for _, d := range durations {
		if *d.target, err = parseDuration(getenv(d.name), d.fallback); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	if raw := getenv("PASSWORD_UPDATE_GRACE_PERIOD_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid PASSWORD_UPDATE_GRACE_PERIOD_DAYS: %q", raw)
		}
		cfg.PasswordGracePeriod = time.Duration(days) * 24 * time.Hour
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.TokenKeys) == 0 {
		return fmt.Errorf("TOKEN_KEYS not set")
	}
	if c.ClaimsSecret == "" {
		return fmt.Errorf("CLAIMS_SECRET not set")
	}

	switch c.StoreBackend {
	case StoreBackendPostgres:
		db := c.Database
		if db.Host == "" || db.Port == "" || db.User == "" || db.Password == "" || db.Name == "" {
			return fmt.Errorf("database environment variables not set")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

func splitList(raw string) []string {
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
