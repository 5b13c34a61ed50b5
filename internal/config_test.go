package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, uint16(3000), cfg.Port)
	assert.Equal(t, 5, cfg.RateLimit.FormMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.FormWindow)
	assert.Equal(t, 30, cfg.RateLimit.APIMax)
	assert.Equal(t, time.Minute, cfg.RateLimit.APIWindow)
	assert.Equal(t, 15*time.Second, cfg.Email.SendTimeout)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "https://shrimptech.vn")
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadConfig_NodeEnvAlias(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("NODE_ENV", "production")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.NotContains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SMTP_SEND_TIMEOUT", "5000")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("GMAIL_USER", "farm@gmail.com")
	t.Setenv("GMAIL_APP_PASSWORD", "secret")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Email.SendTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gmail", cfg.Email.Provider.Name)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "250")
	assert.Equal(t, 250*time.Millisecond, getEnvDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("TEST_DURATION", time.Second))
}
