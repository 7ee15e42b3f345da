package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("BCRYPT_COST", "4")
}

func TestLoadMemoryDriverSkipsDatabase(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("ALLOWED_EMAIL_DOMAINS", " Gmail.com, @rodetes.org ,,")
	t.Setenv("SCAN_SESSION_TTL", "90s")
	t.Setenv("RABBITMQ_ENABLED", "yes")

	cfg := Load()
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Empty(t, cfg.DBHost)
	assert.Equal(t, []string{"gmail.com", "rodetes.org"}, cfg.AllowedEmailDomains)
	assert.Equal(t, 90*time.Second, cfg.ScanSessionTTL)
	assert.True(t, cfg.RabbitEnabled)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMySQLDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "rodetes")

	cfg := Load()
	require.Equal(t, StoreMySQL, cfg.StoreDriver)
	assert.Equal(t, "rodetes", cfg.DBName)
	assert.Nil(t, cfg.AllowedEmailDomains)
	assert.Equal(t, 5*time.Minute, cfg.ScanSessionTTL)
}

func TestParseDomainsEmpty(t *testing.T) {
	assert.Nil(t, ParseDomains(""))
	assert.Nil(t, ParseDomains(" , "))
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 2*time.Second, rl.RefillInterval)
	assert.Equal(t, 10*time.Second, rl.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cc := LoadCacheConfig()
	assert.True(t, cc.Methods["GET"])
	assert.True(t, cc.Methods["HEAD"])
	assert.False(t, cc.Methods["POST"])
}
