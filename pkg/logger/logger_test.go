package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPaths: []string{path}, Service: "intake"})
	require.NoError(t, err)

	log.Info("quota consumed")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"quota consumed"`)
	assert.Contains(t, string(data), `"service":"intake"`)
}

func TestNewFallsBackToInfoLevel(t *testing.T) {
	log, err := New(Config{Level: "nonsense", Format: "console"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(-1))
	assert.True(t, log.Core().Enabled(0))
}
