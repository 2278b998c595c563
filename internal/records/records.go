// Package records loads, cleans and writes the classified text records that
// feed the similarity index.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Record is a single classified text entry
type Record struct {
	ID     int64
	Class  string
	Text   string
	Source string
}

// Classes lists the record classes kept by Preprocess, in output order
var Classes = []string{"act", "circular", "guideline", "regulation"}

// Column names used by the CSV files
const (
	ColumnID     = "id"
	ColumnClass  = "class"
	ColumnText   = "text_content"
	ColumnSource = "source"
)

// ReadCSV parses records from a CSV stream with a header row. The class and
// text_content columns are required; id and source are optional. Rows whose
// text is empty are skipped.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{ColumnClass, ColumnText} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := []Record{}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		text := field(row, ColumnText)
		if strings.TrimSpace(text) == "" {
			continue
		}

		rec := Record{
			Class:  field(row, ColumnClass),
			Text:   text,
			Source: field(row, ColumnSource),
		}
		if raw := strings.TrimSpace(field(row, ColumnID)); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q on row %d: %w", raw, line, err)
			}
			rec.ID = id
		}
		records = append(records, rec)
	}

	return records, nil
}

// Preprocess keeps records of the known classes, grouped in Classes order,
// trims surrounding whitespace, replaces newlines with spaces, tags each
// record with an upper-case source and assigns ids 1..n.
func Preprocess(raw []Record) []Record {
	var out []Record
	for _, class := range Classes {
		for _, rec := range raw {
			if rec.Class != class {
				continue
			}
			text := strings.TrimSpace(rec.Text)
			text = strings.ReplaceAll(text, "\n", " ")
			out = append(out, Record{
				Class:  class,
				Text:   text,
				Source: strings.ToUpper(class),
			})
		}
	}

	for i := range out {
		out[i].ID = int64(i + 1)
	}
	return out
}

// WriteCSV writes records with the id,class,text_content,source header
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnID, ColumnClass, ColumnText, ColumnSource}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{strconv.FormatInt(rec.ID, 10), rec.Class, rec.Text, rec.Source}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// PreprocessFile reads raw records from inputPath, preprocesses them and
// writes the result to outputPath
func PreprocessFile(inputPath, outputPath string) ([]Record, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	raw, err := ReadCSV(in)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", inputPath, err)
	}

	cleaned := Preprocess(raw)

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	if err := WriteCSV(out, cleaned); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", outputPath, err)
	}

	return cleaned, nil
}

// ErrMissingID is returned by LoadFile for a record without a positive id
var ErrMissingID = errors.New("record has no positive id")

// LoadFile reads a preprocessed CSV file. Every record must carry a positive id.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, rec := range records {
		if rec.ID <= 0 {
			return nil, fmt.Errorf("%s: record %d: %w", path, i+1, ErrMissingID)
		}
	}

	return records, nil
}

// IDs returns the ids of records in order
func IDs(records []Record) []int64 {
	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}

// Texts returns the text of records in order
func Texts(records []Record) []string {
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	return texts
}

// DuplicateIDs returns ids that occur more than once, in first-seen order
func DuplicateIDs(records []Record) []int64 {
	seen := make(map[int64]int, len(records))
	var dups []int64
	for _, rec := range records {
		seen[rec.ID]++
		if seen[rec.ID] == 2 {
			dups = append(dups, rec.ID)
		}
	}
	return dups
}
