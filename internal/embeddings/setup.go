package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// IsOllamaInstalled checks if the ollama binary is on PATH
func IsOllamaInstalled() bool {
	_, err := exec.LookPath("ollama")
	return err == nil
}

// IsOllamaRunning checks if the Ollama service answers at baseURL
func IsOllamaRunning(baseURL string) bool {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// StartOllama starts the Ollama service
func StartOllama() error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("brew", "services", "start", "ollama").Run()

	case "linux":
		if err := exec.Command("systemctl", "start", "ollama").Run(); err != nil {
			// Fallback: run in background
			return exec.Command("ollama", "serve").Start()
		}
		return nil

	default:
		return fmt.Errorf("automatic start not supported on %s", runtime.GOOS)
	}
}

// PullOllamaModel pulls an embedding model
func PullOllamaModel(model string) error {
	cmd := exec.Command("ollama", "pull", model)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// TestOllama checks that the model produces an embedding and returns its size
func TestOllama(ctx context.Context, baseURL, model string) (int, error) {
	e, err := NewOllamaEmbedder(baseURL, model)
	if err != nil {
		return 0, err
	}
	return probe(ctx, e)
}

// TestOpenAI checks that the API key works and returns the embedding size
func TestOpenAI(ctx context.Context, apiKey, model string) (int, error) {
	e, err := NewOpenAIEmbedder(apiKey, model)
	if err != nil {
		return 0, err
	}
	return probe(ctx, e)
}

func probe(ctx context.Context, e Embedder) (int, error) {
	vec, err := e.Embed(ctx, "test")
	if err != nil {
		return 0, fmt.Errorf("%s test failed: %w", e.Name(), err)
	}
	return len(vec), nil
}
