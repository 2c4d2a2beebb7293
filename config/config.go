package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Email    EmailConfig
	Events   EventsConfig
	Redis    RedisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver           string
	URI              string
	Name             string
	OperationTimeout time.Duration
	TxMaxRetries     int
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	AdminEmails   []string
}

type EmailConfig struct {
	Provider      string
	PostmarkToken string
	SendgridKey   string
	Sender        string
	ClientURL     string
}

type EventsConfig struct {
	KafkaBrokers []string
	OrderTopic   string
	NotifyGroup  string
}

type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8000"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:           getEnv("STORE_DRIVER", DriverMongo),
			URI:              getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Name:             getEnv("MONGODB_DATABASE", "ecommerce"),
			OperationTimeout: getEnvDuration("DB_OPERATION_TIMEOUT", 10*time.Second),
			TxMaxRetries:     getEnvInt("DB_TX_MAX_RETRIES", 3),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenTTL:      getEnvDuration("JWT_TTL", 7*24*time.Hour),
			ResetTokenTTL: getEnvDuration("RESET_TOKEN_TTL", 15*time.Minute),
			AdminEmails:   getEnvList("ADMIN_EMAILS"),
		},
		Email: EmailConfig{
			Provider:      getEnv("EMAIL_PROVIDER", "log"),
			PostmarkToken: os.Getenv("POSTMARK_API_TOKEN"),
			SendgridKey:   os.Getenv("SENDGRID_API_KEY"),
			Sender:        getEnv("EMAIL_SENDER", "no-reply@localhost"),
			ClientURL:     getEnv("CLIENT_URL", "http://localhost:3000"),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnvList("KAFKA_BROKERS"),
			OrderTopic:   getEnv("KAFKA_ORDER_TOPIC", "orders.events"),
			NotifyGroup:  getEnv("KAFKA_NOTIFY_GROUP", "storefront-notifier"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Log: LogConfig{
			Level:  getEnvLevel("LOG_LEVEL", slog.LevelInfo),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		if c.Database.Driver != DriverMemory {
			return fmt.Errorf("JWT_SECRET is required")
		}
		c.Auth.JWTSecret = "development-only-secret"
	}
	switch c.Email.Provider {
	case "log":
	case "postmark":
		if c.Email.PostmarkToken == "" {
			return fmt.Errorf("POSTMARK_API_TOKEN is required for the postmark provider")
		}
	case "sendgrid":
		if c.Email.SendgridKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid provider")
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.Email.Provider)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format)
	}
	if c.Database.TxMaxRetries < 0 {
		return fmt.Errorf("DB_TX_MAX_RETRIES must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid integer for %s, using default\n", key)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid duration for %s, using default\n", key)
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid log level for %s, using default\n", key)
	}
	return defaultValue
}
