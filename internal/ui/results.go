package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"

	"github.com/iishyfishyy/regsearch/internal/retriever"
)

// separator is printed after each result
var separator = strings.Repeat("-", 50)

// Truncate returns the first n runes of s
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// FormatResult renders one result as its header line, a content preview
// and a separator
func FormatResult(r retriever.Result, previewChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %d, Class: %s, Score: %.4f\n", r.Record.ID, r.Record.Class, r.Distance)
	fmt.Fprintf(&b, "Content: %s...\n", Truncate(r.Record.Text, previewChars))
	b.WriteString(separator)
	b.WriteString("\n")
	return b.String()
}

// PrintResults writes a result list to w, highlighting each header line
func PrintResults(w io.Writer, results []retriever.Result, previewChars int) {
	if len(results) == 0 {
		fmt.Fprintln(w, "\nNo results.")
		return
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintln(w, "\nTop Results:")
	for _, r := range results {
		lines := strings.SplitN(FormatResult(r, previewChars), "\n", 2)
		header.Fprintln(w, lines[0])
		fmt.Fprint(w, lines[1])
	}
}

// ChooseResult asks which result to act on
func ChooseResult(results []retriever.Result) (int, error) {
	options := make([]string, len(results))
	for i, r := range results {
		options[i] = fmt.Sprintf("%d. ID %d (%s) %s", i+1, r.Record.ID, r.Record.Class, Truncate(r.Record.Text, 50))
	}

	var selected int
	prompt := &survey.Select{
		Message: "Which result?",
		Options: options,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return -1, err
	}
	return selected, nil
}
