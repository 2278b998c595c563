package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iishyfishyy/regsearch/internal/config"
	"github.com/iishyfishyy/regsearch/internal/embeddings"
	"github.com/iishyfishyy/regsearch/internal/history"
	"github.com/iishyfishyy/regsearch/internal/records"
	"github.com/iishyfishyy/regsearch/internal/ui"
)

func runPreprocess(cmd *cobra.Command, args []string) error {
	debugf("Records", "preprocessing %s -> %s", inputPath, outputPath)

	recs, err := records.PreprocessFile(inputPath, outputPath)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, rec := range recs {
		counts[rec.Class]++
	}

	ui.ShowSuccess(fmt.Sprintf("Wrote %d records to %s", len(recs), outputPath))
	for _, class := range records.Classes {
		if counts[class] > 0 {
			fmt.Printf("  • %s: %d\n", class, counts[class])
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	hist, err := history.Load()
	if err != nil {
		return err
	}

	entries := hist.Recent(historyLimit)
	if len(entries) == 0 {
		ui.ShowInfo("No queries yet. Try: regsearch query \"capital adequacy\"")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	ui.ShowSection("Recent Queries")
	for _, e := range entries {
		fmt.Printf("%s  (top %d, %d results)\n", e.Query, e.TopK, len(e.ResultIDs))
		gray.Printf("  %s  ids %v\n", formatDuration(e.Timestamp), e.ResultIDs)
	}
	return nil
}

func runConfigure(cmd *cobra.Command, args []string) error {
	ui.ShowSection("Regsearch Configuration")

	cfg, saved, err := config.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if saved {
		displayConfigStatus(cfg)
	} else {
		ui.ShowInfo("No configuration found. Let's set up regsearch.\n")
	}

	provider, err := ui.PromptProvider()
	if err != nil {
		return err
	}

	switch provider {
	case embeddings.ProviderOllama:
		err = setupOllama(cfg)
	case embeddings.ProviderOpenAI:
		err = setupOpenAI(cfg)
	case embeddings.ProviderHash:
		ui.ShowInfo("Using offline keyword hashing")
		ui.ShowInfo("  - No external dependencies")
		ui.ShowInfo("  - Matches shared words, not meaning")
	default:
		err = fmt.Errorf("unknown provider: %s", provider)
	}
	if err != nil {
		return err
	}
	cfg.Provider = provider

	dataFile, err := ui.PromptInput("Preprocessed data file:", cfg.DataFile)
	if err != nil {
		return err
	}
	if dataFile != "" {
		cfg.DataFile = dataFile
	}

	cacheEnabled, err := ui.PromptYesNo("Cache embeddings between runs?", cfg.CacheEnabled)
	if err != nil {
		return err
	}
	cfg.CacheEnabled = cacheEnabled

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	configPath, _ := config.GetConfigPath()
	ui.ShowSuccess(fmt.Sprintf("Configuration saved to %s", configPath))
	ui.ShowInfo("\nYou're all set! Try running: regsearch query \"know your customer\"")
	return nil
}

// displayConfigStatus shows a summary of the saved configuration
func displayConfigStatus(cfg *config.Config) {
	fmt.Println()
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	fmt.Print("  Provider: ")
	switch cfg.Provider {
	case embeddings.ProviderOllama:
		green.Printf("ollama (%s at %s)\n", cfg.Ollama.Model, cfg.Ollama.URL)
	case embeddings.ProviderOpenAI:
		green.Printf("openai (%s)\n", cfg.OpenAI.Model)
	default:
		green.Printf("%s (%d dimensions)\n", cfg.Provider, cfg.Hash.Dimensions)
	}

	fmt.Printf("  Data file: %s\n", cfg.DataFile)

	fmt.Print("  Cache: ")
	if !cfg.CacheEnabled {
		gray.Println("Disabled")
	} else if cachePath, err := config.GetCachePath(); err == nil {
		if info, err := os.Stat(cachePath); err == nil {
			green.Printf("Enabled (%s, %d KB)\n", cachePath, info.Size()/1024)
		} else {
			gray.Println("Enabled (empty)")
		}
	} else {
		gray.Println("Enabled")
	}

	fmt.Println()
}

func setupOllama(cfg *config.Config) error {
	ui.ShowSection("Ollama Setup")

	if !embeddings.IsOllamaInstalled() {
		ui.ShowError("Ollama not found")
		ui.ShowInfo("Install it from https://ollama.com and run 'regsearch configure' again.")
		return fmt.Errorf("ollama is not installed")
	}
	ui.ShowSuccess("Ollama is installed")

	if !embeddings.IsOllamaRunning(cfg.Ollama.URL) {
		ui.ShowInfo("Starting Ollama service...")
		if err := embeddings.StartOllama(); err != nil {
			return fmt.Errorf("failed to start Ollama: %w", err)
		}
		// Give it a moment to start
		time.Sleep(2 * time.Second)
	}

	model, err := ui.PromptInput("Embedding model:", cfg.Ollama.Model)
	if err != nil {
		return err
	}
	if model != "" {
		cfg.Ollama.Model = model
	}

	ui.ShowInfo(fmt.Sprintf("Pulling embedding model (%s)...", cfg.Ollama.Model))
	if err := embeddings.PullOllamaModel(cfg.Ollama.Model); err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}

	ui.ShowInfo("Testing embeddings...")
	dims, err := embeddings.TestOllama(context.Background(), cfg.Ollama.URL, cfg.Ollama.Model)
	if err != nil {
		return err
	}

	ui.ShowSuccess(fmt.Sprintf("Ollama configured (%s, %d dimensions)", cfg.Ollama.Model, dims))
	return nil
}

func setupOpenAI(cfg *config.Config) error {
	ui.ShowSection("OpenAI Setup")

	options := []string{
		"Use OPENAI_API_KEY environment variable",
		"Store the key in the config file",
	}
	selected, err := ui.ShowMenu("How should the API key be provided?", options)
	if err != nil {
		return err
	}

	useEnv := selected == 0
	var apiKey string
	if useEnv {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			ui.ShowWarning("OPENAI_API_KEY environment variable not set")
			ui.ShowInfo("Please set it in your shell:")
			ui.ShowInfo("  export OPENAI_API_KEY=sk-...")
			return fmt.Errorf("OPENAI_API_KEY not set")
		}
	} else {
		apiKey, err = ui.PromptPassword("Enter OpenAI API key:")
		if err != nil {
			return err
		}
		configPath, _ := config.GetConfigPath()
		ui.ShowWarning(fmt.Sprintf("API key will be saved to %s (0600 perms)", configPath))
	}

	ui.ShowInfo("Testing OpenAI connection...")
	dims, err := embeddings.TestOpenAI(context.Background(), apiKey, cfg.OpenAI.Model)
	if err != nil {
		return err
	}

	cfg.OpenAI.UseEnvVar = useEnv
	if useEnv {
		cfg.OpenAI.APIKey = ""
	} else {
		cfg.OpenAI.APIKey = apiKey
	}

	ui.ShowSuccess(fmt.Sprintf("OpenAI configured (%s, %d dimensions)", cfg.OpenAI.Model, dims))
	return nil
}
