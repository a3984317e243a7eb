package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "data/forms.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Lifecycle.CodeDigits)
	assert.Equal(t, 5*time.Second, cfg.Lifecycle.PersistTimeout)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("FORMS_LIFECYCLE_CODE_DIGITS", "6")

	path := writeConfig(t, `
server:
  port: 7000
  allowed_origins:
    - https://forms.example.com
database:
  path: /tmp/forms-test.db
lifecycle:
  persist_timeout: 2s
report:
  company_name: Acme Lending
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://forms.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/forms-test.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Second, cfg.Lifecycle.PersistTimeout)
	assert.Equal(t, 6, cfg.Lifecycle.CodeDigits)
	assert.Equal(t, "Acme Lending", cfg.Report.CompanyName)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "")
		_, err := Load("")
		assert.ErrorContains(t, err, "jwt_secret")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", testSecret)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Path: "forms.db"},
			Auth:      AuthConfig{JWTSecret: testSecret},
			Lifecycle: LifecycleConfig{PersistTimeout: time.Second, CodeDigits: 5},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 32 bytes"},
		{"too many digits", func(c *Config) { c.Lifecycle.CodeDigits = 12 }, "code_digits"},
		{"zero timeout", func(c *Config) { c.Lifecycle.PersistTimeout = 0 }, "persist_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
