package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Action represents the user's choice after a result list
type Action int

const (
	ActionNewQuery Action = iota
	ActionCopy
	ActionQuit
)

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// QueryReader reads queries either through a survey prompt (on a terminal)
// or line by line from a plain reader (pipes, files)
type QueryReader struct {
	interactive bool
	in          *bufio.Reader
	out         io.Writer
}

// NewQueryReader creates a reader over stdin
func NewQueryReader() *QueryReader {
	return &QueryReader{
		interactive: IsInteractive(),
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

// NewLineQueryReader creates a non-interactive reader over r
func NewLineQueryReader(r io.Reader, out io.Writer) *QueryReader {
	return &QueryReader{in: bufio.NewReader(r), out: out}
}

// Interactive reports whether prompts go through survey
func (q *QueryReader) Interactive() bool {
	return q.interactive
}

// Next returns the next non-empty query. It returns io.EOF when input ends
// or the user interrupts the prompt.
func (q *QueryReader) Next() (string, error) {
	for {
		var query string
		if q.interactive {
			prompt := &survey.Input{Message: "Query:"}
			if err := survey.AskOne(prompt, &query); err != nil {
				if errors.Is(err, terminal.InterruptErr) {
					return "", io.EOF
				}
				return "", err
			}
		} else {
			fmt.Fprint(q.out, "Query: ")
			line, err := q.in.ReadString('\n')
			if err != nil && (err != io.EOF || line == "") {
				return "", err
			}
			query = line
		}

		query = strings.TrimSpace(query)
		if query != "" {
			return query, nil
		}
	}
}

// ChooseAfterResults asks what to do once results are shown
func ChooseAfterResults() (Action, error) {
	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: []string{
			"New query",
			"Copy a result",
			"Quit",
		},
	}

	if err := survey.AskOne(prompt, &choice); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return ActionQuit, nil
		}
		return ActionQuit, err
	}

	switch choice {
	case "New query":
		return ActionNewQuery, nil
	case "Copy a result":
		return ActionCopy, nil
	default:
		return ActionQuit, nil
	}
}

// ShowMenu displays a selection menu and returns the chosen index
func ShowMenu(message string, options []string) (int, error) {
	var selected int
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return -1, err
	}

	return selected, nil
}

// PromptYesNo asks a yes/no question
func PromptYesNo(message string, defaultValue bool) (bool, error) {
	answer := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}

	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}

	return answer, nil
}

// PromptInput asks for a free-text value with a default
func PromptInput(message, defaultValue string) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}

	if err := survey.AskOne(prompt, &value); err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}

// PromptPassword asks for a secret without echoing it
func PromptPassword(message string) (string, error) {
	var secret string
	prompt := &survey.Password{Message: message}

	if err := survey.AskOne(prompt, &secret, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}

	return strings.TrimSpace(secret), nil
}

// PromptProvider asks which embedding provider to use
func PromptProvider() (string, error) {
	options := []string{
		"ollama - local model, no API key",
		"openai - hosted model, needs an API key",
		"hash - offline keyword hashing, no model",
	}

	selected, err := ShowMenu("Select an embedding provider:", options)
	if err != nil {
		return "", err
	}

	return strings.SplitN(options[selected], " ", 2)[0], nil
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("✗ %s\n", message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Printf("! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Println(message)
}

// ShowSection displays a section header
func ShowSection(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("\n=== %s ===\n", title)
}
