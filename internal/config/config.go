package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iishyfishyy/regsearch/internal/embeddings"
)

const (
	ConfigDirName  = ".regsearch"
	ConfigFileName = "config.json"
	CacheFileName  = "embeddings.db"
)

// Config represents the application configuration
type Config struct {
	Provider     string       `json:"provider"`
	Ollama       OllamaConfig `json:"ollama"`
	OpenAI       OpenAIConfig `json:"openai"`
	Hash         HashConfig   `json:"hash"`
	Search       SearchConfig `json:"search"`
	DataFile     string       `json:"data_file,omitempty"`
	CacheEnabled bool         `json:"cache_enabled"`
}

// OllamaConfig holds settings for the local Ollama provider
type OllamaConfig struct {
	URL         string `json:"url"`
	Model       string `json:"model"`
	Concurrency int    `json:"concurrency,omitempty"`
}

// OpenAIConfig holds settings for the OpenAI provider
type OpenAIConfig struct {
	APIKey            string  `json:"api_key,omitempty"`
	UseEnvVar         bool    `json:"use_env_var"`
	Model             string  `json:"model"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
}

// HashConfig holds settings for the offline hashing provider
type HashConfig struct {
	Dimensions int `json:"dimensions"`
}

// SearchConfig holds query defaults
type SearchConfig struct {
	TopK         int `json:"top_k"`
	PreviewChars int `json:"preview_chars"`
}

// Default returns a configuration using the offline hash provider
func Default() *Config {
	return &Config{
		Provider: embeddings.ProviderHash,
		Ollama: OllamaConfig{
			URL:   embeddings.DefaultOllamaURL,
			Model: embeddings.DefaultOllamaModel,
		},
		OpenAI: OpenAIConfig{
			UseEnvVar: true,
			Model:     embeddings.DefaultOpenAIModel,
		},
		Hash: HashConfig{Dimensions: embeddings.DefaultHashDimensions},
		Search: SearchConfig{
			TopK:         5,
			PreviewChars: 200,
		},
		DataFile:     "preprocessed_data.csv",
		CacheEnabled: true,
	}
}

// Validate checks that the configuration can create an embedder
func (c *Config) Validate() error {
	switch c.Provider {
	case embeddings.ProviderOllama, embeddings.ProviderHash:
	case embeddings.ProviderOpenAI:
		if c.OpenAIKey() == "" {
			return fmt.Errorf("OpenAI API key not found (set OPENAI_API_KEY or store in config)")
		}
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search.top_k must be at least 1, got %d", c.Search.TopK)
	}
	if c.Search.PreviewChars < 0 {
		return fmt.Errorf("search.preview_chars must not be negative")
	}
	return nil
}

// OpenAIKey returns the API key, preferring OPENAI_API_KEY when UseEnvVar is set
func (c *Config) OpenAIKey() string {
	if c.OpenAI.UseEnvVar {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
	}
	return c.OpenAI.APIKey
}

// EmbedderConfig converts the configuration for embeddings.NewEmbedder
func (c *Config) EmbedderConfig() embeddings.Config {
	return embeddings.Config{
		Provider:          c.Provider,
		OllamaURL:         c.Ollama.URL,
		OllamaModel:       c.Ollama.Model,
		OllamaConcurrency: c.Ollama.Concurrency,
		OpenAIKey:         c.OpenAIKey(),
		OpenAIModel:       c.OpenAI.Model,
		OpenAIRPS:         c.OpenAI.RequestsPerSecond,
		HashDimensions:    c.Hash.Dimensions,
	}
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetCachePath returns the path to the embeddings cache database
func GetCachePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, CacheFileName), nil
}

// Load reads the configuration from disk. Missing fields take their
// defaults. If no config file exists, Load returns nil (not an error).
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault returns the saved configuration, or Default when none exists
func LoadOrDefault() (*Config, bool, error) {
	cfg, err := Load()
	if err != nil {
		return nil, false, err
	}
	if cfg == nil {
		return Default(), false, nil
	}
	return cfg, true, nil
}

// Save writes the configuration to disk
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600 since the file may hold an API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if a configuration file exists
func Exists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
