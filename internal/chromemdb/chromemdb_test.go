package chromemdb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textlab/internal/config"
)

// letterEmbed embeds text as its letter frequencies.
func letterEmbed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 27)
	v[26] = 1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v, nil
}

func newIndex(t *testing.T, key string) *HistoryIndex {
	t.Helper()
	idx, err := NewHistoryIndex(config.HistoryIndexConfig{
		Path:          t.TempDir(),
		Collection:    "history",
		InMemory:      true,
		EncryptionKey: key,
	}, letterEmbed)
	require.NoError(t, err)
	return idx
}

func entries() []Entry {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []Entry{
		{ID: "1", Owner: "a@x.io", Operation: "summarize", Original: "zebra zoo", Result: "zzz", Timestamp: now},
		{ID: "2", Owner: "a@x.io", Operation: "paraphrase", Original: "apple pie", Result: "a pie of apples", Timestamp: now},
		{ID: "3", Owner: "b@x.io", Operation: "summarize", Original: "zebra zoo", Result: "zzz", Timestamp: now},
	}
}

func TestHistoryIndex_SearchFiltersByOwner(t *testing.T) {
	idx := newIndex(t, "")
	require.NoError(t, idx.Add(context.Background(), entries()...))
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search(context.Background(), "a@x.io", "zebra zoo\n\nzzz", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "1", hits[0].ID)
	assert.Equal(t, "summarize", hits[0].Operation)
	assert.Equal(t, 2026, hits[0].Timestamp.Year())
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)

	hits, err = idx.Search(context.Background(), "nobody@x.io", "zebra", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHistoryIndex_Has(t *testing.T) {
	idx := newIndex(t, "")
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, entries()...))

	assert.True(t, idx.Has(ctx, entries()[0].ID))
	assert.False(t, idx.Has(ctx, "missing"))
	assert.False(t, idx.Has(ctx, ""))
}

func TestHistoryIndex_ReAddReplaces(t *testing.T) {
	idx := newIndex(t, "")
	require.NoError(t, idx.Add(context.Background(), entries()...))
	require.NoError(t, idx.Add(context.Background(), entries()[0]))

	assert.Equal(t, 3, idx.Count())
}

func TestHistoryIndex_EmptyAndInvalid(t *testing.T) {
	idx := newIndex(t, "")

	hits, err := idx.Search(context.Background(), "a@x.io", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Search(context.Background(), "a@x.io", "  ", 5)
	require.Error(t, err)

	require.NoError(t, idx.Add(context.Background()))
}

func TestHistoryIndex_ExportImport(t *testing.T) {
	key := strings.Repeat("k", 32)
	dir := t.TempDir()
	cfg := config.HistoryIndexConfig{Path: dir, Collection: "history", InMemory: true, EncryptionKey: key}

	idx, err := NewHistoryIndex(cfg, letterEmbed)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), entries()...))
	require.NoError(t, idx.Export())

	restored, err := NewHistoryIndex(cfg, letterEmbed)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Count())

	hits, err := restored.Search(context.Background(), "b@x.io", "zebra", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestHistoryIndex_ExportNeedsKey(t *testing.T) {
	idx := newIndex(t, "")
	assert.False(t, idx.Exportable())
	require.Error(t, idx.Export())
}
