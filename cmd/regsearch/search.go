package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/iishyfishyy/regsearch/internal/config"
	"github.com/iishyfishyy/regsearch/internal/embedcache"
	"github.com/iishyfishyy/regsearch/internal/embeddings"
	"github.com/iishyfishyy/regsearch/internal/history"
	"github.com/iishyfishyy/regsearch/internal/records"
	"github.com/iishyfishyy/regsearch/internal/retriever"
	"github.com/iishyfishyy/regsearch/internal/ui"
)

// loadSettings returns the saved configuration or the defaults
func loadSettings() (*config.Config, error) {
	configPath, _ := config.GetConfigPath()
	debugf("Config", "loading from %s", configPath)

	cfg, saved, err := config.LoadOrDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if !saved {
		debugf("Config", "no config file, using defaults (provider=%s)", cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	debugf("Config", "loaded (provider=%s, top_k=%d, cache=%v)", cfg.Provider, cfg.Search.TopK, cfg.CacheEnabled)
	return cfg, nil
}

// loadRecords reads records from --markdown-dir, --data or the configured file
func loadRecords(cfg *config.Config) ([]records.Record, error) {
	if markdownDir != "" {
		debugf("Records", "loading markdown from %s", markdownDir)
		recs, err := records.LoadMarkdownDir(markdownDir)
		if err != nil && len(recs) == 0 {
			return nil, err
		}
		if err != nil {
			ui.ShowWarning(err.Error())
		}
		return recs, nil
	}

	path := dataPath
	if path == "" {
		path = cfg.DataFile
	}
	debugf("Records", "loading %s", path)

	recs, err := records.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ui.ShowInfo("Run 'regsearch preprocess' to create it from the raw CSV")
		}
		return nil, err
	}
	return recs, nil
}

// session is a retriever with its optional cache
type session struct {
	retriever *retriever.Retriever
	cache     *embedcache.Store
	embedder  embeddings.Embedder
}

func (s *session) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// openSession creates the embedder, opens the cache and builds the index
func openSession(ctx context.Context, cfg *config.Config, recs []records.Record, useCache, clearCache bool) (*session, error) {
	debugf("Embeddings", "creating %s embedder", cfg.Provider)
	embedder, err := embeddings.NewEmbedder(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	s := &session{embedder: embedder}
	opts := retriever.Options{
		Debug:    debug,
		Progress: progressPrinter(),
	}

	if useCache && cfg.CacheEnabled {
		cachePath, err := config.GetCachePath()
		if err != nil {
			return nil, err
		}
		store, err := embedcache.Open(cachePath, cfg.Provider, embedder.Name(), embedder.Dimensions())
		if err != nil {
			ui.ShowWarning(fmt.Sprintf("Embedding cache unavailable: %v", err))
		} else {
			debugf("Cache", "opened %s (%d vectors)", store.Path(), store.Count())
			if clearCache {
				if err := store.Clear(ctx); err != nil {
					store.Close()
					return nil, fmt.Errorf("failed to clear cache: %w", err)
				}
			}
			s.cache = store
			opts.Cache = store
		}
	}

	s.retriever = retriever.New(embedder, opts)

	ui.ShowInfo(fmt.Sprintf("Indexing %d records with %s...", len(recs), embedder.Name()))
	if err := s.retriever.BuildIndex(ctx, recs); err != nil {
		s.Close()
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.UpdateIndexTime(); err != nil {
			debugf("Cache", "failed to record index time: %v", err)
		}
	}

	return s, nil
}

// progressPrinter reports embedding progress on stderr when it is a terminal
func progressPrinter() func(done, total int) {
	if debug || !ui.IsInteractive() {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rEmbedding %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	k := cfg.Search.TopK
	if cmd.Flags().Changed("top-k") {
		k = topK
	}

	recs, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	s, err := openSession(ctx, cfg, recs, !noCache, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ui.ShowSuccess(fmt.Sprintf("Indexed %d records", s.retriever.Count()))

	hist, err := history.Load()
	if err != nil {
		ui.ShowWarning(fmt.Sprintf("History disabled: %v", err))
	}

	if len(args) > 0 {
		_, err := answer(ctx, s.retriever, hist, strings.Join(args, " "), k, cfg.Search.PreviewChars)
		return err
	}

	reader := ui.NewQueryReader()
	for {
		query, err := reader.Next()
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if query == "exit" || query == "quit" {
			return nil
		}

		results, err := answer(ctx, s.retriever, hist, query, k, cfg.Search.PreviewChars)
		if err != nil {
			ui.ShowError(err.Error())
			continue
		}

		if !reader.Interactive() || len(results) == 0 {
			continue
		}
		if quit := afterResults(results); quit {
			return nil
		}
	}
}

// answer runs one query, prints the results and records it in history
func answer(ctx context.Context, r *retriever.Retriever, hist *history.History, query string, k, preview int) ([]retriever.Result, error) {
	debugf("Main", "query %q (top_k=%d)", query, k)

	results, err := r.Retrieve(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	ui.PrintResults(os.Stdout, results, preview)

	if hist != nil {
		ids := make([]int64, len(results))
		for i, res := range results {
			ids[i] = res.Record.ID
		}
		hist.AddEntry(history.NewEntry(query, k, ids))
		if err := hist.Save(); err != nil {
			debugf("History", "failed to save: %v", err)
		}
	}

	return results, nil
}

// afterResults offers the copy action until the user moves on. It reports
// whether the user chose to quit.
func afterResults(results []retriever.Result) bool {
	for {
		action, err := ui.ChooseAfterResults()
		if err != nil {
			ui.ShowError(err.Error())
			return true
		}

		switch action {
		case ui.ActionNewQuery:
			return false
		case ui.ActionQuit:
			return true
		case ui.ActionCopy:
			selected, err := ui.ChooseResult(results)
			if err != nil {
				continue
			}
			if err := clipboard.WriteAll(results[selected].Record.Text); err != nil {
				ui.ShowError(fmt.Sprintf("Failed to copy: %v", err))
				continue
			}
			ui.ShowSuccess(fmt.Sprintf("Copied record %d to clipboard", results[selected].Record.ID))
		}
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	ui.ShowSection("Indexing Records")

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if !cfg.CacheEnabled {
		ui.ShowWarning("Embedding cache is disabled in the configuration; nothing will be kept")
	}

	recs, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	if forceReindex {
		ui.ShowInfo("Force reindexing (--force flag)")
	}

	ctx := context.Background()
	s, err := openSession(ctx, cfg, recs, true, forceReindex)
	if err != nil {
		return err
	}
	defer s.Close()

	ui.ShowSuccess(fmt.Sprintf("Indexed %d records (dimension %d)", s.retriever.Count(), s.embedder.Dimensions()))
	if dups := records.DuplicateIDs(recs); len(dups) > 0 {
		ui.ShowWarning(fmt.Sprintf("%d duplicate record ids; the first record with each id is shown in results", len(dups)))
	}
	if s.cache != nil {
		fmt.Printf("Cache: %s (%d vectors)\n", s.cache.Path(), s.cache.Count())
	}

	return nil
}
