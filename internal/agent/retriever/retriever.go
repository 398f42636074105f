// Package retriever runs semantic lookups against the vector index and
// renders hits into the context block consumed by answer synthesis.
package retriever

import (
	"context"
	"strings"

	"github.com/catalog-agent/server/internal/agent/history"
	"github.com/catalog-agent/server/internal/agent/index"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// Searcher is the slice of the index the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]index.Result, error)
}

// Retriever resolves follow-up references and searches the index.
type Retriever struct {
	searcher Searcher
	topK     int
}

// New builds a retriever over the given index. topK <= 0 falls back to 5.
func New(searcher Searcher, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{searcher: searcher, topK: topK}
}

// Retrieve searches for the query, expanding anaphoric follow-ups with the
// last product query first. Index failures degrade to an empty context block
// rather than failing the turn.
func (r *Retriever) Retrieve(ctx context.Context, query, lastProductQuery string) string {
	effective := history.ExpandFollowUp(query, lastProductQuery)
	if effective != query {
		logx.Debug().
			Str("query", query).
			Str("expanded", effective).
			Msg("expanded follow-up for semantic search")
	}

	results, err := r.searcher.Search(ctx, effective, r.topK)
	if err != nil {
		logx.Warn().Err(err).Str("query", effective).Msg("semantic search failed")
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for _, res := range results {
		blocks = append(blocks, "Product: "+res.Entry.Title+"\n"+res.Entry.Text)
	}
	return strings.Join(blocks, "\n---\n")
}
