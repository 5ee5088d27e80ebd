package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFromYAML(t, "")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Quota.GuestLimit)
	assert.Equal(t, 20, cfg.Quota.AuthenticatedLimit)
	assert.Equal(t, 1000, cfg.Quota.AdminLimit)
	assert.True(t, cfg.Quota.FailOpen)
	assert.Equal(t, 10*time.Minute, cfg.Export.StageTTL)
	assert.Equal(t, int64(10<<20), cfg.Extraction.MaxImageBytes)
	assert.Equal(t, "exact", cfg.Extraction.MergeStrategy)
	assert.Equal(t, 5, cfg.Nutrition.PageSize)

	policy, err := cfg.QuotaPolicy()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", policy.Location.String())
	assert.Equal(t, 20, policy.Limit(quota.TierAuthenticated))

	fp := cfg.FetchPolicy()
	assert.Equal(t, 3, fp.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, fp.BaseDelay)
}

func TestLoadFileOverrides(t *testing.T) {
	cfg, err := loadFromYAML(t, `
quota:
  guest_limit: 2
  fail_open: false
  timezone: UTC
extraction:
  provider: ollama
  merge_strategy: fuzzy
`)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Quota.GuestLimit)
	assert.False(t, cfg.Quota.FailOpen)
	assert.Equal(t, "ollama", cfg.Extraction.Provider)
	assert.Equal(t, "fuzzy", cfg.Extraction.MergeStrategy)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("INTAKE_QUOTA_ADMIN_LIMIT", "7")

	cfg, err := loadFromYAML(t, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Quota.AdminLimit)
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]string{
		"bad timezone":      "quota:\n  timezone: Mars/Olympus\n",
		"zero limit":        "quota:\n  guest_limit: 0\n",
		"unknown backend":   "storage:\n  quota: cassandra\n",
		"firestore project": "storage:\n  recipes: firestore\n",
		"bad strategy":      "extraction:\n  merge_strategy: semantic\n",
		"bad provider":      "extraction:\n  provider: palm\n",
		"prod without jwt":  "app:\n  environment: production\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadFromYAML(t, body)
			assert.Error(t, err)
		})
	}
}

func loadFromYAML(t *testing.T, body string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if body == "" {
		body = "app:\n  name: alchemorsel-intake\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return Load(path)
}
