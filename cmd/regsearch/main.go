package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// version is set by goreleaser at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// CLI flags
	debug        bool
	inputPath    string
	outputPath   string
	dataPath     string
	markdownDir  string
	topK         int
	noCache      bool
	forceReindex bool
	historyLimit int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "regsearch",
		Short:   "Semantic search over regulatory documents",
		Long:    "regsearch embeds regulatory records and answers nearest-neighbour queries over them",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	}

	// Add global debug flag
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	preprocessCmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Clean a raw document CSV and assign record ids",
		RunE:  runPreprocess,
	}
	preprocessCmd.Flags().StringVarP(&inputPath, "input", "i", "data.csv", "Raw CSV with class and text_content columns")
	preprocessCmd.Flags().StringVarP(&outputPath, "output", "o", "preprocessed_data.csv", "Where to write the preprocessed CSV")

	queryCmd := &cobra.Command{
		Use:   "query [text...]",
		Short: "Search records; starts an interactive loop when no text is given",
		RunE:  runQuery,
	}
	addSourceFlags(queryCmd)
	queryCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (defaults to the configured value)")
	queryCmd.Flags().BoolVar(&noCache, "no-cache", false, "Embed every record without the embedding cache")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Embed all records and warm the embedding cache",
		RunE:  runIndex,
	}
	addSourceFlags(indexCmd)
	indexCmd.Flags().BoolVarP(&forceReindex, "force", "f", false, "Force reindexing (bypass cache)")

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Choose and check the embedding provider",
		RunE:  runConfigure,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of entries to show")

	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(historyCmd)

	return rootCmd
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dataPath, "data", "", "Preprocessed CSV (defaults to the configured data file)")
	cmd.Flags().StringVar(&markdownDir, "markdown-dir", "", "Load records from markdown files with frontmatter instead of CSV")
}

// debugf writes a [DEBUG] line to stderr when --debug is set
func debugf(component, format string, args ...any) {
	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+component+": "+format+"\n", args...)
	}
}

// formatDuration formats a time.Time as "X ago"
func formatDuration(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
