package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Payflexi PayflexiConfig
	Host     HostConfig
	Kafka    KafkaConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

// StoreConfig selects the correlation store backend.
type StoreConfig struct {
	// Driver is "postgres" or "bolt".
	Driver string
	// BoltPath is the bolt database file, used when Driver is "bolt".
	BoltPath string
}

// PayflexiConfig holds processor credentials and integration settings.
// Both credential pairs are loaded; the mode resolved per request picks
// which pair applies.
type PayflexiConfig struct {
	APIBase       string
	Gateway       string
	Mode          models.Mode
	LiveSecretKey string
	LivePublicKey string
	TestSecretKey string
	TestPublicKey string
	// SigningSecret keys the integrity hash on return-redirect tokens.
	SigningSecret string
	// PublicURL is the externally reachable base URL of this service,
	// used to build callback and webhook URLs.
	PublicURL string
	Timeout   time.Duration
}

// HostConfig points at the forms platform that owns submission storage.
type HostConfig struct {
	APIBase string
	APIKey  string
	Timeout time.Duration
}

// KafkaConfig holds the optional payment-action publisher settings.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string // debug, info, warn, error
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "75s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "payflexi"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Store: StoreConfig{
			Driver:   getEnv("STORE_DRIVER", "postgres"),
			BoltPath: getEnv("STORE_BOLT_PATH", "payflexi.db"),
		},
		Payflexi: PayflexiConfig{
			APIBase:       getEnv("PAYFLEXI_API_BASE", "https://api.payflexi.co/"),
			Gateway:       getEnv("PAYFLEXI_GATEWAY", ""),
			Mode:          models.Mode(getEnv("PAYFLEXI_API_MODE", "test")),
			LiveSecretKey: getEnv("PAYFLEXI_LIVE_SECRET_KEY", ""),
			LivePublicKey: getEnv("PAYFLEXI_LIVE_PUBLIC_KEY", ""),
			TestSecretKey: getEnv("PAYFLEXI_TEST_SECRET_KEY", ""),
			TestPublicKey: getEnv("PAYFLEXI_TEST_PUBLIC_KEY", ""),
			SigningSecret: getEnv("PAYFLEXI_SIGNING_SECRET", ""),
			PublicURL:     getEnv("PAYFLEXI_PUBLIC_URL", "http://localhost:8080"),
			Timeout:       getEnvAsDuration("PAYFLEXI_HTTP_TIMEOUT", "60s"),
		},
		Host: HostConfig{
			APIBase: getEnv("HOST_API_BASE", "http://localhost:8081"),
			APIKey:  getEnv("HOST_API_KEY", ""),
			Timeout: getEnvAsDuration("HOST_HTTP_TIMEOUT", "15s"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "payflexi.payment.actions"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host cannot be empty")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name cannot be empty")
		}
	case "bolt":
		if c.Store.BoltPath == "" {
			return fmt.Errorf("bolt path cannot be empty")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be postgres or bolt)", c.Store.Driver)
	}

	if !c.Payflexi.Mode.Valid() {
		return fmt.Errorf("invalid api mode: %s (must be live or test)", c.Payflexi.Mode)
	}
	if c.Payflexi.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic cannot be empty when kafka is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return nil
}

// SecretKey returns the secret key for the given mode.
func (c *PayflexiConfig) SecretKey(mode models.Mode) string {
	if mode == models.ModeLive {
		return c.LiveSecretKey
	}
	return c.TestSecretKey
}

// PublicKey returns the public key for the given mode.
func (c *PayflexiConfig) PublicKey(mode models.Mode) string {
	if mode == models.ModeLive {
		return c.LivePublicKey
	}
	return c.TestPublicKey
}

// WebhookURL returns the URL the processor should deliver webhooks to.
// A feed id can be appended so deliveries are attributable per feed.
func (c *PayflexiConfig) WebhookURL(feedID int64) string {
	url := strings.TrimRight(c.PublicURL, "/") + "/payflexi/webhook"
	if feedID > 0 {
		url += fmt.Sprintf("?fid=%d", feedID)
	}
	return url
}

// ReturnURL returns the browser redirect target for the given encoded
// return token.
func (c *PayflexiConfig) ReturnURL(token string) string {
	return strings.TrimRight(c.PublicURL, "/") + "/payflexi/return?gf_payflexi_return=" + token
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to parsing the default if provided value is invalid
		duration, err = time.ParseDuration(defaultValue)
		if err != nil {
			return 0
		}
	}
	return duration
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
