package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		// t.Setenv restores the previous values when the test ends.
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("PAYMENT_BASE_URL", "https://pay.example.com")
		t.Setenv("PAYMENT_TIMEOUT", "3s")
		t.Setenv("PAYMENT_SIM_DECLINE_OVER", "500000")
		t.Setenv("REQUEST_TIMEOUT", "20s")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5433", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "secret", cfg.JWTSecret)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, "https://pay.example.com", cfg.PaymentBaseURL)
		assert.Equal(t, 3*time.Second, cfg.PaymentTimeout)
		assert.Equal(t, int64(500000), cfg.PaymentSimDeclineOver)
		assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_PORT", "")
		t.Setenv("APP_PORT", "")
		t.Setenv("PAYMENT_TIMEOUT", "not-a-duration")
		t.Setenv("PAYMENT_SIM_DECLINE_OVER", "")
		t.Setenv("REQUEST_TIMEOUT", "")

		cfg := LoadConfig()

		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, 10*time.Second, cfg.PaymentTimeout)
		assert.Equal(t, int64(0), cfg.PaymentSimDeclineOver)
		assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	})
}
