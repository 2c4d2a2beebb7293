package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT",
		"STORE_DRIVER", "MONGODB_URI", "MONGODB_DATABASE", "DB_OPERATION_TIMEOUT", "DB_TX_MAX_RETRIES",
		"JWT_SECRET", "JWT_TTL", "RESET_TOKEN_TTL", "ADMIN_EMAILS",
		"EMAIL_PROVIDER", "POSTMARK_API_TOKEN", "SENDGRID_API_KEY", "EMAIL_SENDER", "CLIENT_URL",
		"KAFKA_BROKERS", "KAFKA_ORDER_TOPIC", "KAFKA_NOTIFY_GROUP", "REDIS_URL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Database.OperationTimeout)
	assert.Equal(t, 3, cfg.Database.TxMaxRetries)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, "log", cfg.Email.Provider)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Empty(t, cfg.Events.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_OPERATION_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ADMIN_EMAILS", "root@example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_TX_MAX_RETRIES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Database.OperationTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, []string{"root@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, 3, cfg.Database.TxMaxRetries)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Run("missing secret for mongo", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("memory driver gets a development secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("STORE_DRIVER", DriverMemory)
		cfg, err := Load()
		require.NoError(t, err)
		assert.NotEmpty(t, cfg.Auth.JWTSecret)
	})

	t.Run("postmark needs a token", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("EMAIL_PROVIDER", "postmark")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("STORE_DRIVER", "cassandra")
		_, err := Load()
		require.Error(t, err)
	})
}
