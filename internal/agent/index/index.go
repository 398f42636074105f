// Package index implements the semantic similarity index over embedded
// product text. The index is in-process: vectors live in memory and are
// ranked by cosine similarity, with an on-disk snapshot to avoid re-embedding
// the catalog on every start.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Embedder turns text into vectors. Implementations wrap an embedding
// provider; tests inject fakes.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Entry is one embedded chunk of product text. Metadata mirrors the
// structured catalog columns so a hit can be attributed to a product without
// a join.
type Entry struct {
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"vector"`
}

// Result is one scored hit.
type Result struct {
	Entry Entry
	Score float64
}

// Memory is the in-process vector index. Safe for concurrent readers.
type Memory struct {
	mu       sync.RWMutex
	entries  []Entry
	embedder Embedder
}

// NewMemory creates an empty index over the given embedder.
func NewMemory(embedder Embedder) *Memory {
	return &Memory{embedder: embedder}
}

// Add embeds the texts of the given entries (entries with a non-empty
// vector are taken as-is) and stores them.
func (m *Memory) Add(ctx context.Context, entries []Entry) error {
	var pending []int
	var texts []string
	for i, e := range entries {
		if len(e.Vector) == 0 {
			pending = append(pending, i)
			texts = append(texts, e.Text)
		}
	}
	if len(texts) > 0 {
		vectors, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed %d chunks: %w", len(texts), err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for j, i := range pending {
			entries[i].Vector = vectors[j]
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Search embeds the query and returns the top-k entries by cosine
// similarity.
func (m *Memory) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	qv := vectors[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, Result{Entry: e, Score: cosineSimilarity(qv, e.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
