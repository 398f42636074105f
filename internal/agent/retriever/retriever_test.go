package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog-agent/server/internal/agent/index"
)

type fakeSearcher struct {
	results []index.Result
	err     error
	queries []string
	topKs   []int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, topK int) ([]index.Result, error) {
	f.queries = append(f.queries, query)
	f.topKs = append(f.topKs, topK)
	return f.results, f.err
}

func TestRetrieveFormatsContextBlocks(t *testing.T) {
	fs := &fakeSearcher{results: []index.Result{
		{Entry: index.Entry{Title: "Ginger Snap", Text: "A crisp cookie."}, Score: 0.9},
		{Entry: index.Entry{Title: "Lemon Bar Mix", Text: "Tart and sweet."}, Score: 0.7},
	}}
	r := New(fs, 5)

	got := r.Retrieve(context.Background(), "crispy cookies", "")
	assert.Equal(t, "Product: Ginger Snap\nA crisp cookie.\n---\nProduct: Lemon Bar Mix\nTart and sweet.", got)
	assert.Equal(t, []int{5}, fs.topKs)
}

func TestRetrieveExpandsFollowUp(t *testing.T) {
	fs := &fakeSearcher{}
	r := New(fs, 5)

	r.Retrieve(context.Background(), "is it vegan", "tell me about the ginger snap cookie")
	require.Len(t, fs.queries, 1)
	assert.Equal(t, "tell me about the ginger snap cookie is it vegan", fs.queries[0])

	// Standalone queries go through untouched.
	r.Retrieve(context.Background(), "which baking mixes contain almond flour today", "tell me about the ginger snap cookie")
	assert.Equal(t, "which baking mixes contain almond flour today", fs.queries[1])
}

func TestRetrieveSearchFailureDegrades(t *testing.T) {
	fs := &fakeSearcher{err: errors.New("index offline")}
	r := New(fs, 5)

	assert.Empty(t, r.Retrieve(context.Background(), "anything", ""))
}

func TestRetrieveNoHits(t *testing.T) {
	r := New(&fakeSearcher{}, 5)
	assert.Empty(t, r.Retrieve(context.Background(), "anything", ""))
}

func TestNewDefaultsTopK(t *testing.T) {
	fs := &fakeSearcher{}
	r := New(fs, 0)
	r.Retrieve(context.Background(), "standalone query with plenty of words here", "")
	assert.Equal(t, []int{5}, fs.topKs)
}
