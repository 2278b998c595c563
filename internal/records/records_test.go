package records

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawCSV = `class,text_content
regulation,"  Capital buffers
must be maintained.  "
notice,Ignored because the class is unknown
act,The Banking Act
circular,"KYC norms
updated"
act,"   "
guideline,Outsourcing guideline
`

func TestReadCSV(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(rawCSV))
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, "regulation", recs[0].Class)
	assert.Equal(t, int64(0), recs[0].ID)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("id,text_content\n1,hello\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"class"`)
}

func TestReadCSVBadID(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("id,class,text_content\nx,act,hello\n"))
	assert.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	raw, err := ReadCSV(strings.NewReader(rawCSV))
	require.NoError(t, err)

	got := Preprocess(raw)
	want := []Record{
		{ID: 1, Class: "act", Text: "The Banking Act", Source: "ACT"},
		{ID: 2, Class: "circular", Text: "KYC norms updated", Source: "CIRCULAR"},
		{ID: 3, Class: "guideline", Text: "Outsourcing guideline", Source: "GUIDELINE"},
		{ID: 4, Class: "regulation", Text: "Capital buffers must be maintained.", Source: "REGULATION"},
	}
	assert.Equal(t, want, got)
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "data.csv")
	out := filepath.Join(dir, "out", "preprocessed.csv")
	require.NoError(t, os.WriteFile(in, []byte(rawCSV), 0644))

	cleaned, err := PreprocessFile(in, out)
	require.NoError(t, err)
	require.Len(t, cleaned, 4)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,class,text_content,source\n1,act,The Banking Act,ACT\n"))

	loaded, err := LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, cleaned, loaded)
}

func TestLoadFileRequiresIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("class,text_content\nact,hello\n"), 0644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestHelpers(t *testing.T) {
	recs := []Record{{ID: 3, Text: "a"}, {ID: 1, Text: "b"}, {ID: 3, Text: "c"}, {ID: 1, Text: "d"}, {ID: 2, Text: "e"}}
	assert.Equal(t, []int64{3, 1, 3, 1, 2}, IDs(recs))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, Texts(recs))
	assert.Equal(t, []int64{3, 1}, DuplicateIDs(recs))
	assert.Empty(t, DuplicateIDs(recs[:2]))
}

func TestWriteCSVQuotesFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Record{{ID: 1, Class: "act", Text: `says "hi", twice`, Source: "ACT"}}))
	assert.Equal(t, "id,class,text_content,source\n1,act,\"says \"\"hi\"\", twice\",ACT\n", buf.String())
}

func TestParseMarkdown(t *testing.T) {
	rec, err := ParseMarkdown("---\nid: 12\nclass: circular\n---\n\nLine one\nline two\n")
	require.NoError(t, err)
	assert.Equal(t, Record{ID: 12, Class: "circular", Text: "Line one line two", Source: "CIRCULAR"}, rec)

	_, err = ParseMarkdown("no frontmatter")
	assert.Error(t, err)

	_, err = ParseMarkdown("---\nclass: act\n---\nbody")
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = ParseMarkdown("---\nid: 1\n")
	assert.Error(t, err)
}

func TestLoadMarkdownDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("b.md", "---\nid: 2\nclass: act\nsource: GAZETTE\n---\nSecond")
	write("a.md", "---\nid: 1\nclass: guideline\n---\nFirst")
	write("README.md", "# ignored")
	write("_draft.md", "---\nid: 9\n---\nignored")
	write("broken.md", "---\nid: [\n---\nbody")

	recs, err := LoadMarkdownDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.md")
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, "GAZETTE", recs[1].Source)
}
