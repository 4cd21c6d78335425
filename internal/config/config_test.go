package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"HTTP_ADDR", "APP_ENV", "SHUTDOWN_TIMEOUT", "REQUEST_TIMEOUT_MS", "JWT_SECRET",
	"TOKEN_TTL_HOURS", "BCRYPT_COST", "HASH_CONCURRENCY", "AUTH_RATE_LIMIT", "AUTH_RATE_WINDOW_SEC",
	"CORS_ALLOWED_ORIGINS", "CORS_ALLOW_LOCALHOST", "TRUST_FORWARDED_FOR", "STORE_DRIVER", "ORDER_PRICING",
	"ORDER_DECREMENT_STOCK", "ORDER_STRICT_TRANSITIONS", "WORKER_MIN", "WORKER_MAX", "WORKER_COUNT",
	"MYSQL_HOST", "MYSQL_PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c := Load()
	assert.Equal(t, ":5000", c.HTTPAddr)
	assert.Equal(t, 15*time.Second, c.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL)
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, 5, c.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, c.AuthRateWindow)
	assert.Equal(t, []string{"http://localhost:3000"}, c.CORSAllowedOrigins)
	assert.True(t, c.CORSAllowLocalhost)
	assert.False(t, c.TrustForwardedFor)
	assert.Equal(t, DriverMemory, c.StoreDriver)
	assert.Equal(t, PricingClient, c.OrderPricing)
	assert.False(t, c.OrderDecrementStock)
	assert.False(t, c.OrderStrictTransitions)
	assert.Equal(t, 1, c.WorkerMin)
	assert.Equal(t, 4, c.WorkerMax)
	assert.False(t, c.Development())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL_HOURS", "1")
	t.Setenv("AUTH_RATE_WINDOW_SEC", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example, https://admin.example")
	t.Setenv("CORS_ALLOW_LOCALHOST", "false")
	t.Setenv("STORE_DRIVER", "MONGO")
	t.Setenv("ORDER_PRICING", "server")
	t.Setenv("ORDER_DECREMENT_STOCK", "true")
	t.Setenv("ORDER_STRICT_TRANSITIONS", "1")
	t.Setenv("MYSQL_HOST", "db")
	t.Setenv("MYSQL_PORT", "3307")
	c := Load()
	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.True(t, c.Development())
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, time.Hour, c.TokenTTL)
	assert.Equal(t, time.Minute, c.AuthRateWindow)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, c.CORSAllowedOrigins)
	assert.False(t, c.CORSAllowLocalhost)
	assert.Equal(t, DriverMongo, c.StoreDriver)
	assert.Equal(t, PricingServer, c.OrderPricing)
	assert.True(t, c.OrderDecrementStock)
	assert.True(t, c.OrderStrictTransitions)
	assert.Contains(t, c.MySQL.DSN(), "@tcp(db:3307)/storefront?")
}

func TestValidateRequiresSecret(t *testing.T) {
	clearEnv(t)
	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	require.NoError(t, Load().Validate())
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("ORDER_PRICING", "auction")
	t.Setenv("BCRYPT_COST", "99")
	t.Setenv("WORKER_MIN", "5")
	t.Setenv("WORKER_MAX", "2")
	err := Load().Validate()
	require.Error(t, err)
	for _, want := range []string{"STORE_DRIVER", "ORDER_PRICING", "BCRYPT_COST", "WORKER_MIN"} {
		assert.Contains(t, err.Error(), want)
	}
}
