// Package engine translates natural-language questions into relational
// queries, executes them against the product catalog and renders the results
// into chat-ready text.
package engine

import (
	"context"
	"fmt"

	"github.com/catalog-agent/server/internal/agent/graph/parsers"
	"github.com/catalog-agent/server/internal/agent/graph/prompts"
	"github.com/catalog-agent/server/internal/agent/history"
	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// Store is the slice of the catalog the engine needs.
type Store interface {
	Query(ctx context.Context, query string) ([][]any, []string, error)
	Titles(ctx context.Context, limit int) ([]string, error)
}

// Engine is the structured query path: plan generation, execution, count
// refinement and formatting.
type Engine struct {
	store     Store
	completer model.Completer
	formatter *Formatter
	titles    []string
}

// New builds an engine and loads the product title sample used to ground
// query generation. A store failure here is a startup error.
func New(ctx context.Context, store Store, completer model.Completer, titleSample int) (*Engine, error) {
	titles, err := store.Titles(ctx, titleSample)
	if err != nil {
		return nil, fmt.Errorf("load product titles: %w", err)
	}
	logx.Info().Int("titles", len(titles)).Msg("structured query engine ready")
	return &Engine{
		store:     store,
		completer: completer,
		formatter: NewFormatter(completer),
		titles:    titles,
	}, nil
}

// Process answers a query through the structured path. Follow-up context is
// folded into the query before plan generation; every failure past startup
// degrades to a natural-language "couldn't find" answer.
func (e *Engine) Process(ctx context.Context, query, lastProductQuery, lastProductAnswer string) string {
	enhanced := e.enhanceQuery(query, lastProductQuery, lastProductAnswer)

	plan := e.generatePlan(ctx, enhanced, query)
	sql := plan.GeneratedQuery
	if sql == "" {
		return NoResultsMessage
	}

	if isCountQuery(sql) {
		rows, columns := e.execute(ctx, sql)
		if n, ok := singleCount(rows); ok && n == 1 {
			// A count of one is not user-answerable without the row itself.
			selectAll := convertCountToSelectAll(sql)
			rows, columns = e.execute(ctx, selectAll)
			one := int64(1)
			return e.formatter.Format(ctx, rows, columns, query, plan, &one)
		}
		return e.formatter.Format(ctx, rows, columns, query, plan, nil)
	}

	var totalCount *int64
	if plan.IsListRequest() {
		if countSQL := listCountSQL(sql); countSQL != "" {
			countRows, _ := e.execute(ctx, countSQL)
			if n, ok := singleCount(countRows); ok {
				totalCount = &n
			}
		}
	}

	rows, columns := e.execute(ctx, sql)
	return e.formatter.Format(ctx, rows, columns, query, plan, totalCount)
}

// enhanceQuery annotates an anaphoric follow-up with the product under
// discussion. A bold product mention in the previous answer beats the
// previous query text.
func (e *Engine) enhanceQuery(query, lastProductQuery, lastProductAnswer string) string {
	if lastProductQuery == "" || !history.IsAnaphoric(query) {
		return query
	}
	if specific := history.ReferencedProduct(lastProductAnswer); specific != "" {
		return fmt.Sprintf("%s (referring to specific product: %s)", query, specific)
	}
	return fmt.Sprintf("%s (referring to: %s)", query, lastProductQuery)
}

// generatePlan runs one completion call for intent analysis plus query
// generation. Completion failures fall back to a bare search plan with no
// generated query.
func (e *Engine) generatePlan(ctx context.Context, enhanced, original string) model.QueryPlan {
	prompt, err := prompts.RenderGenerateQuery(e.titles, enhanced)
	if err != nil {
		logx.Error().Err(err).Msg("rendering query generation prompt failed")
		return parsers.FallbackQueryPlan(original)
	}
	content, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		logx.Warn().Err(err).Msg("query generation call failed")
		return parsers.FallbackQueryPlan(original)
	}
	plan, ok := parsers.ParseQueryPlan(content, original)
	if ok {
		logx.Debug().
			Strs("intents", plan.Intents).
			Str("sql", plan.GeneratedQuery).
			Msg("query plan generated")
	}
	return plan
}

// execute runs a query, degrading execution failures to an empty result set.
func (e *Engine) execute(ctx context.Context, sql string) ([][]any, []string) {
	rows, columns, err := e.store.Query(ctx, sql)
	if err != nil {
		logx.Warn().Err(err).Str("sql", sql).Msg("catalog query failed")
		return nil, nil
	}
	return rows, columns
}

// singleCount extracts the scalar from a one-cell result set.
func singleCount(rows [][]any) (int64, bool) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, false
	}
	switch v := rows[0][0].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}
