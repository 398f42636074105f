package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps each text to a fixed vector; unknown texts embed to the
// fallback vector.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = f.fallback
		}
	}
	return out, nil
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	emb := &fakeEmbedder{
		vectors: map[string][]float32{
			"crisp ginger cookie": {1, 0},
			"tart lemon bars":     {0, 1},
			"spicy snap":          {0.9, 0.1},
		},
		fallback: []float32{1, 0},
	}
	m := NewMemory(emb)
	require.NoError(t, m.Add(context.Background(), []Entry{
		{Title: "Ginger Snap", Text: "crisp ginger cookie"},
		{Title: "Lemon Bar Mix", Text: "tart lemon bars"},
		{Title: "Snap Variant", Text: "spicy snap"},
	}))
	require.Equal(t, 3, m.Len())

	results, err := m.Search(context.Background(), "something gingery", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Ginger Snap", results[0].Entry.Title)
	assert.Equal(t, "Snap Variant", results[1].Entry.Title)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestAddSkipsAlreadyEmbeddedEntries(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("must not be called")}
	m := NewMemory(emb)

	err := m.Add(context.Background(), []Entry{
		{Title: "Preloaded", Text: "text", Vector: []float32{1, 2, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestSearchEmbedFailure(t *testing.T) {
	m := NewMemory(&fakeEmbedder{err: errors.New("quota exhausted")})
	_, err := m.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}

func TestSplitText(t *testing.T) {
	chunks := splitText("abcdefghij", 4, 2)
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)

	// Short text stays whole.
	assert.Equal(t, []string{"abc"}, splitText("abc", 4, 2))

	// Degenerate overlap falls back to no overlap.
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, splitText("abcdefghij", 4, 4))
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	emb := &fakeEmbedder{fallback: []float32{1, 0}}

	m := NewMemory(emb)
	require.NoError(t, m.Add(context.Background(), []Entry{
		{Title: "Ginger Snap", Text: "crisp", Metadata: map[string]string{"type": "Cookie"}},
	}))
	require.NoError(t, m.SaveSnapshot(path, "embed-001"))

	restored := NewMemory(emb)
	ok, err := restored.LoadSnapshot(path, "embed-001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, restored.Len())

	results, err := restored.Search(context.Background(), "crisp", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Ginger Snap", results[0].Entry.Title)
	assert.Equal(t, "Cookie", results[0].Entry.Metadata["type"])
}

func TestLoadSnapshotMisses(t *testing.T) {
	m := NewMemory(&fakeEmbedder{})

	// Missing file is not an error.
	ok, err := m.LoadSnapshot(filepath.Join(t.TempDir(), "nope.json"), "embed-001")
	require.NoError(t, err)
	assert.False(t, ok)

	// A snapshot from a different embedding model is rebuilt, not reused.
	path := filepath.Join(t.TempDir(), "index.json")
	src := NewMemory(&fakeEmbedder{})
	require.NoError(t, src.SaveSnapshot(path, "embed-001"))
	ok, err = m.LoadSnapshot(path, "embed-002")
	require.NoError(t, err)
	assert.False(t, ok)
}
