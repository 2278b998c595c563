package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iishyfishyy/regsearch/internal/embeddings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsNil(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg)

	exists, err := Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	cfg, saved, err := LoadOrDefault()
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	cfg.Provider = embeddings.ProviderOllama
	cfg.Ollama.Model = "mxbai-embed-large"
	cfg.Search.TopK = 8
	require.NoError(t, Save(cfg))

	info, err := os.Stat(filepath.Join(home, ConfigDirName, ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFillsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{"provider":"ollama"}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 200, cfg.Search.PreviewChars)
	assert.Equal(t, embeddings.DefaultOllamaModel, cfg.Ollama.Model)
}

func TestLoadInvalidJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{`), 0600))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Provider = "bogus"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Provider = embeddings.ProviderOpenAI
	assert.Error(t, cfg.Validate())

	t.Setenv("OPENAI_API_KEY", "sk-env")
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "sk-env", cfg.EmbedderConfig().OpenAIKey)

	cfg.Search.TopK = 0
	assert.Error(t, cfg.Validate())
}

func TestOpenAIKeyPrefersStoredWhenEnvDisabled(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := Default()
	cfg.OpenAI.UseEnvVar = false
	cfg.OpenAI.APIKey = "sk-stored"
	assert.Equal(t, "sk-stored", cfg.OpenAIKey())
}
