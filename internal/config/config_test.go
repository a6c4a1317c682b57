package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-reconciliation/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("RECON_TEST_DB", "/var/lib/recon/sessions.db")

	path := writeConfig(t, `
server:
  port: 9090
  allowed_origins:
    - https://backoffice.example.com
storage:
  database_path: ${RECON_TEST_DB}
reconciliation:
  mode: by_name
  tolerance_amount: "2.50"
  date_window_days: 1
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://backoffice.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 32, cfg.Server.MaxUploadMB, "unset keys keep defaults")
	assert.Equal(t, "/var/lib/recon/sessions.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	mode, err := cfg.Reconciliation.ModeValue()
	require.NoError(t, err)
	assert.Equal(t, domain.ModeByName, mode)

	opts, err := cfg.Reconciliation.Options()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2.5").Equal(opts.ToleranceAmount))
	assert.True(t, decimal.RequireFromString("0.01").Equal(opts.TolerancePercentage))
	assert.Equal(t, 0.8, opts.NameSimilarityThreshold)
	assert.Equal(t, 1, opts.DateWindowDays)
	assert.Equal(t, domain.MalformedExclude, opts.MalformedPolicy)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantCfg bool
	}{
		{name: "malformed yaml", content: "server: [port"},
		{name: "unknown mode", content: "reconciliation:\n  mode: by_colour\n", wantCfg: true},
		{name: "threshold out of range", content: "reconciliation:\n  name_similarity_threshold: 1.2\n", wantCfg: true},
		{name: "non-decimal tolerance", content: "reconciliation:\n  tolerance_amount: lots\n", wantCfg: true},
		{name: "bad policy", content: "reconciliation:\n  malformed_policy: ignore\n", wantCfg: true},
		{name: "port out of range", content: "server:\n  port: 70000\n", wantCfg: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
			assert.Nil(t, cfg)
			if tt.wantCfg {
				assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8181")
	t.Setenv("RECON_DB_PATH", "test.db")
	t.Setenv("RECON_MODE", "by_name")
	t.Setenv("RECON_TOLERANCE_PERCENTAGE", "0.05")
	t.Setenv("RECON_NAME_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("RECON_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := LoadFromEnv()

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "by_name", cfg.Reconciliation.Mode)
	assert.Equal(t, "0.05", cfg.Reconciliation.TolerancePercentage)
	assert.Equal(t, 0.9, cfg.Reconciliation.NameSimilarityThreshold)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "RECON_ALLOWED_ORIGINS", "RECON_MAX_UPLOAD_MB", "RECON_DB_PATH", "RECON_MODE",
		"RECON_TOLERANCE_AMOUNT", "RECON_TOLERANCE_PERCENTAGE", "RECON_NAME_SIMILARITY_THRESHOLD",
		"RECON_MALFORMED_POLICY", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("RECON_DATE_WINDOW_DAYS", "not-a-number")

	cfg := LoadFromEnv()
	assert.Equal(t, Default(), cfg)
}

func TestLoadOrEnv(t *testing.T) {
	t.Run("falls back to env when the file is missing", func(t *testing.T) {
		t.Setenv("RECON_DB_PATH", "env.db")
		t.Setenv("RECON_MODE", "")

		cfg, err := LoadOrEnv(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "env.db", cfg.Storage.DatabasePath)
	})

	t.Run("empty path uses env", func(t *testing.T) {
		t.Setenv("RECON_DB_PATH", "")
		t.Setenv("RECON_MODE", "")

		cfg, err := LoadOrEnv("")
		require.NoError(t, err)
		assert.Equal(t, "reconciliation.db", cfg.Storage.DatabasePath)
	})

	t.Run("broken file is not silently ignored", func(t *testing.T) {
		_, err := LoadOrEnv(writeConfig(t, "server: [port"))
		assert.Error(t, err)
	})

	t.Run("invalid env values are reported", func(t *testing.T) {
		t.Setenv("RECON_MODE", "by_colour")

		_, err := LoadOrEnv("")
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.Reconciliation.Options()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultOptions().NameSimilarityThreshold, opts.NameSimilarityThreshold)
	assert.True(t, domain.DefaultOptions().ToleranceAmount.Equal(opts.ToleranceAmount))
}
