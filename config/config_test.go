package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("GIN_MODE", "")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.Debug)
	assert.NotEmpty(t, cfg.SQLitePath)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/sales-test.db")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("GIN_MODE", "release")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "/tmp/sales-test.db", cfg.SQLitePath)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	t.Setenv("PORT", "abc")
	assert.Equal(t, 8080, LoadConfig().Port)
}
