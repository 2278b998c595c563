package history

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	hist, err := Load()
	require.NoError(t, err)
	assert.Empty(t, hist.Entries)
	assert.Empty(t, hist.Recent(5))
}

func TestSaveLoadRecent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	hist, err := Load()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		hist.AddEntry(NewEntry(fmt.Sprintf("query %d", i), 5, []int64{int64(i)}))
	}
	require.NoError(t, hist.Save())

	loaded, err := Load()
	require.NoError(t, err)
	require.Len(t, loaded.Entries, 3)

	recent := loaded.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "query 2", recent[0].Query)
	assert.Equal(t, "query 1", recent[1].Query)
	assert.Equal(t, []int64{2}, recent[0].ResultIDs)

	_, err = uuid.Parse(recent[0].ID)
	assert.NoError(t, err)
	assert.Len(t, loaded.Recent(10), 3)
}

func TestSaveTrimsOldEntries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	hist := &History{}
	for i := 0; i < MaxEntries+5; i++ {
		hist.AddEntry(NewEntry(fmt.Sprintf("q%d", i), 1, nil))
	}
	require.NoError(t, hist.Save())

	loaded, err := Load()
	require.NoError(t, err)
	require.Len(t, loaded.Entries, MaxEntries)
	assert.Equal(t, "q5", loaded.Entries[0].Query)
}
