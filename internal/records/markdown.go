package records

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter represents the YAML frontmatter in a record document
type Frontmatter struct {
	ID     int64  `yaml:"id"`
	Class  string `yaml:"class"`
	Source string `yaml:"source"`
}

// ParseMarkdown parses a markdown document with YAML frontmatter into a
// record. The body, with newlines folded to spaces, becomes the text.
func ParseMarkdown(content string) (Record, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return Record{}, fmt.Errorf("missing frontmatter")
	}

	// Find end of frontmatter
	endIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			endIdx = i
			break
		}
	}
	if endIdx == -1 {
		return Record{}, fmt.Errorf("unclosed frontmatter")
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:endIdx], "\n")), &fm); err != nil {
		return Record{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if fm.ID <= 0 {
		return Record{}, ErrMissingID
	}

	body := strings.TrimSpace(strings.Join(lines[endIdx+1:], "\n"))
	if body == "" {
		return Record{}, fmt.Errorf("empty body")
	}

	source := fm.Source
	if source == "" {
		source = strings.ToUpper(fm.Class)
	}

	return Record{
		ID:     fm.ID,
		Class:  fm.Class,
		Text:   strings.ReplaceAll(body, "\n", " "),
		Source: source,
	}, nil
}

// LoadMarkdownDir loads every *.md file in dir as a record, sorted by id.
// README.md and files starting with _ are skipped. Files that fail to parse
// are reported in the returned error while the rest are still returned.
func LoadMarkdownDir(dir string) ([]Record, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob files: %w", err)
	}

	var records []Record
	var errs []string

	for _, file := range files {
		basename := filepath.Base(file)
		if strings.EqualFold(basename, "README.md") || strings.HasPrefix(basename, "_") {
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", basename, err))
			continue
		}

		rec, err := ParseMarkdown(string(data))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", basename, err))
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	if len(errs) > 0 {
		return records, fmt.Errorf("failed to parse some files:\n%s", strings.Join(errs, "\n"))
	}
	return records, nil
}
