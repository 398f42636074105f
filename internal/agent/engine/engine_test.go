package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	titles  []string
	results map[string]storeResult
	queries []string
}

type storeResult struct {
	rows    [][]any
	columns []string
	err     error
}

func (f *fakeStore) Query(ctx context.Context, query string) ([][]any, []string, error) {
	f.queries = append(f.queries, query)
	res, ok := f.results[query]
	if !ok {
		return nil, nil, errors.New("unexpected query: " + query)
	}
	return res.rows, res.columns, res.err
}

func (f *fakeStore) Titles(ctx context.Context, limit int) ([]string, error) {
	return f.titles, nil
}

func planReply(intents []string, sql string) string {
	reply := `{"analysis": {"intent": [`
	for i, it := range intents {
		if i > 0 {
			reply += ", "
		}
		reply += `"` + it + `"`
	}
	return reply + `], "entities": {}, "filters": []}, "sql": "` + sql + `"}`
}

func TestProcessCheapestCookie(t *testing.T) {
	sql := "SELECT title, current_price FROM products WHERE type LIKE '%Cookie%' ORDER BY current_price ASC LIMIT 20"
	st := &fakeStore{
		titles: []string{"Choc Chip", "Ginger Snap"},
		results: map[string]storeResult{
			sql: {
				rows:    [][]any{{"Ginger Snap", 4.49}},
				columns: []string{"title", "current_price"},
			},
		},
	}
	fc := &fakeCompleter{replies: []string{planReply([]string{"price"}, sql)}}

	eng, err := New(context.Background(), st, fc, 100)
	require.NoError(t, err)

	got := eng.Process(context.Background(), "What is the price of the cheapest cookie?", "", "")
	assert.Equal(t, "The price of Ginger Snap is $4.49.", got)
}

func TestProcessCountOfOneRefinesToSelectAll(t *testing.T) {
	countSQL := "SELECT COUNT(id) FROM products WHERE diet LIKE '%Gluten-Free%'"
	selectAll := "SELECT * FROM products WHERE diet LIKE '%Gluten-Free%'"
	st := &fakeStore{
		results: map[string]storeResult{
			countSQL: {
				rows:    [][]any{{int64(1)}},
				columns: []string{"COUNT(id)"},
			},
			selectAll: {
				rows:    [][]any{{"Almond Flour Mix", 9.99}},
				columns: []string{"title", "current_price"},
			},
		},
	}
	// Second completion is the narration of the single refined row.
	fc := &fakeCompleter{replies: []string{
		planReply([]string{"count"}, countSQL),
		"There is 1 gluten-free product: Almond Flour Mix at $9.99.",
	}}

	eng, err := New(context.Background(), st, fc, 100)
	require.NoError(t, err)

	got := eng.Process(context.Background(), "How many gluten-free products are available?", "", "")
	assert.Contains(t, got, "Almond Flour Mix")
	require.Len(t, st.queries, 2)
	assert.Equal(t, countSQL, st.queries[0])
	assert.Equal(t, selectAll, st.queries[1])
}

func TestProcessListRequestComputesTotal(t *testing.T) {
	listSQL := "SELECT title, current_price FROM products WHERE type LIKE '%Cookie%' LIMIT 20"
	countSQL := "SELECT COUNT(id) FROM products WHERE type LIKE '%Cookie%'"
	st := &fakeStore{
		results: map[string]storeResult{
			countSQL: {rows: [][]any{{int64(2)}}, columns: []string{"COUNT(id)"}},
			listSQL: {
				rows:    [][]any{{"Choc Chip", 5.99}, {"Ginger Snap", 4.49}},
				columns: []string{"title", "current_price"},
			},
		},
	}
	fc := &fakeCompleter{replies: []string{planReply([]string{"search"}, listSQL)}}

	eng, err := New(context.Background(), st, fc, 100)
	require.NoError(t, err)

	got := eng.Process(context.Background(), "show me cookie products", "", "")
	assert.Contains(t, got, "- Choc Chip")
	assert.Contains(t, got, "- Ginger Snap")
	assert.Equal(t, []string{countSQL, listSQL}, st.queries)
}

func TestProcessExecutionErrorDegradesToNotFound(t *testing.T) {
	sql := "SELECT nope FROM nothing"
	st := &fakeStore{
		results: map[string]storeResult{
			sql: {err: errors.New("no such table")},
		},
	}
	fc := &fakeCompleter{replies: []string{planReply([]string{"price"}, sql)}}

	eng, err := New(context.Background(), st, fc, 100)
	require.NoError(t, err)

	got := eng.Process(context.Background(), "price of unicorn dust", "", "")
	assert.Equal(t, NoResultsMessage, got)
}

func TestProcessEmptyPlanReturnsNotFound(t *testing.T) {
	st := &fakeStore{}
	fc := &fakeCompleter{replies: []string{"I cannot answer that."}}

	eng, err := New(context.Background(), st, fc, 100)
	require.NoError(t, err)

	got := eng.Process(context.Background(), "gibberish", "", "")
	assert.Equal(t, NoResultsMessage, got)
	assert.Empty(t, st.queries)
}

func TestEnhanceQueryFollowUp(t *testing.T) {
	eng := &Engine{}

	got := eng.enhanceQuery("Is it gluten-free?", "How much does the Lemon Bar Mix cost?", "The price of Lemon Bar Mix is $12.95.")
	assert.Equal(t, "Is it gluten-free? (referring to: How much does the Lemon Bar Mix cost?)", got)

	// A bold product mention in the previous answer wins.
	got = eng.enhanceQuery("Is it gluten-free?", "cheapest cookie?", "Top pick is **Ginger Snap**: **$4.49** today.")
	assert.Equal(t, "Is it gluten-free? (referring to specific product: Ginger Snap)", got)

	// Non-anaphoric queries stay untouched.
	got = eng.enhanceQuery("How many vegan products are there in the catalog?", "prior", "answer")
	assert.Equal(t, "How many vegan products are there in the catalog?", got)
}
