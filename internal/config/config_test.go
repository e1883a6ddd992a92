package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 80, cfg.Reconcile.DefaultReliability)
	assert.False(t, cfg.Reconcile.KeepKnownAttributes)
	assert.False(t, cfg.Reconcile.ComposeUnicode)
	assert.Equal(t, 3, cfg.Reconcile.ResolveAttempts)
	assert.Equal(t, 1, cfg.Batch.Workers)
	assert.Equal(t, 30*time.Second, cfg.Batch.RecordTimeout)
	assert.Equal(t, "parfumo", cfg.Source.Name)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/scent.db")
	t.Setenv("SOURCE_DEFAULT_RELIABILITY", "10")
	t.Setenv("RECONCILE_KEEP_KNOWN_ATTRIBUTES", "TRUE")
	t.Setenv("RECONCILE_COMPOSE_UNICODE", "true")
	t.Setenv("BATCH_WORKERS", "4")
	t.Setenv("BATCH_RECORD_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:/tmp/scent.db?_foreign_keys=on&_busy_timeout=5000", cfg.Database.DSN())
	assert.Equal(t, 10, cfg.Reconcile.DefaultReliability)
	assert.True(t, cfg.Reconcile.KeepKnownAttributes)
	assert.True(t, cfg.Reconcile.ComposeUnicode)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, 5*time.Second, cfg.Batch.RecordTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects default secret in production", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("DB_PASSWORD", "pw")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT secret")
	})

	t.Run("rejects zero workers", func(t *testing.T) {
		t.Setenv("BATCH_WORKERS", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "BATCH_WORKERS")
	})
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Database: "scentdb", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=scentdb sslmode=disable", d.DSN())
}
