package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=localhost port=5432 user=invoices password=invoices123 dbname=invoices sslmode=disable", cfg.Database.DSN())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, devSecret, cfg.Auth.Secret)
	assert.Equal(t, "EUR", cfg.App.Currency)
	assert.Empty(t, cfg.Auth.Workspaces)
	assert.True(t, cfg.Auth.Allows(42))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "2s")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:test.db")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("AUTH_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "file:test.db", cfg.Database.DSN())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
}

func TestLoad_WorkspaceAllowlist(t *testing.T) {
	t.Setenv("AUTH_WORKSPACES", "3,7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 7}, cfg.Auth.Workspaces)
	assert.True(t, cfg.Auth.Allows(7))
	assert.False(t, cfg.Auth.Allows(4))
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}
