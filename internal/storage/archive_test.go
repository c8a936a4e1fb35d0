package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/summarize"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(filepath.Join(dir, "archive"), 0)

	published := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	run := NewRunRecord(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	run.Order = []string{"roaming"}
	run.Categories = map[string][]article.Record{
		"roaming": {{Title: "T", Link: "https://x.example.com", Source: article.SourceDomesticNews, Published: &published, Category: "roaming"}},
	}
	run.UniqueCount = 1
	run.Insight = &summarize.Insight{StrategicInsight: "insight", KeyFindings: []string{"f"}, Recommendations: []string{"r"}}

	_, err := uuid.Parse(run.RunID)
	require.NoError(t, err)

	path, err := a.Save(run)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "run-20240601T120000Z-")

	loaded, err := a.Load(path)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, loaded.RunID)
	assert.Equal(t, run.Order, loaded.Order)
	assert.Equal(t, "T", loaded.Categories["roaming"][0].Title)
	assert.True(t, published.Equal(*loaded.Categories["roaming"][0].Published))
	assert.Equal(t, "insight", loaded.Insight.StrategicInsight)
}

func TestListAndPrune(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir, 48*time.Hour)
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{72 * time.Hour, 24 * time.Hour, time.Hour} {
		_, err := a.Save(NewRunRecord(now.Add(-age)))
		require.NoError(t, err)
	}
	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	paths, err := a.List()
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Contains(t, filepath.Base(paths[0]), "run-20240607")

	removed, err := a.Prune(now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	paths, err = a.List()
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}

func TestListMissingDir(t *testing.T) {
	paths, err := NewArchive(filepath.Join(t.TempDir(), "nope"), time.Hour).List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}
