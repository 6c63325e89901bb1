package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, "wcpe_session", cfg.SessionCookieName)
	assert.Equal(t, 24*time.Hour, cfg.NonceTTL)
	assert.Equal(t, 48*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.ExportURLTTL)
	assert.Equal(t, "8080", cfg.ApiPort)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("NONCE_TTL_SECONDS", "60")
	t.Setenv("SITE_URL", "https://shop.example.com")
	t.Setenv("SECURE_COOKIES", "true")

	cfg, err := Load("all")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.NonceTTL)
	assert.Equal(t, "https://shop.example.com/shop", cfg.ShopURL)
	assert.True(t, cfg.SecureCookies)
}

func TestLoad_InvalidNumber(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TTL_SECONDS", "two days")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SESSION_TTL_SECONDS")
}
