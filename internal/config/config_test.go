package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "gemma", cfg.Engine.Format)
	assert.Contains(t, cfg.Rewrite.TriggerWords, "that")
}

func TestLoad_PartialFileMergedOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
retrieval:
  top_k: 8
  threshold: -1
engine:
  format: chatml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, -1.0, cfg.Retrieval.Threshold, "negative threshold disables filtering and must survive")
	assert.Equal(t, "chatml", cfg.Engine.Format)
	// untouched sections keep their defaults
	assert.Equal(t, 512, cfg.Completion.MaxTokens)
	assert.Equal(t, 12, cfg.Rewrite.MinQueryRunes)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
