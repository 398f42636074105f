// Package agent exposes the conversational product-catalog agent: one Ask
// call runs the reasoning graph over the caller-owned history and returns the
// answer plus the updated history.
package agent

import (
	"context"

	"github.com/catalog-agent/server/internal/agent/graph"
	"github.com/catalog-agent/server/internal/agent/history"
	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// Agent answers catalog questions through the compiled reasoning graph.
type Agent struct {
	runner graph.Runner
}

// New wraps a graph runner.
func New(runner graph.Runner) *Agent {
	return &Agent{runner: runner}
}

// Ask answers one query. Follow-up context is recovered from the history
// before the graph runs. The returned history is the input history plus
// exactly one user turn and one tagged assistant turn; the input slice is
// never mutated.
func (a *Agent) Ask(ctx context.Context, conversationID, query string, turns []model.ConversationTurn) (string, []model.ConversationTurn, error) {
	lastQuery, lastAnswer := history.LastProductContext(turns)

	res, err := a.runner.Invoke(ctx, model.QueryInput{
		ConversationID:    conversationID,
		Query:             query,
		LastProductQuery:  lastQuery,
		LastProductAnswer: lastAnswer,
	})
	if err != nil {
		return "", turns, err
	}

	tag := res.TurnType
	if tag == "" {
		tag = model.TurnTypeNonProduct
	}

	logx.Debug().
		Str("conversation_id", conversationID).
		Str("turn_type", tag).
		Float64("total_cost_usd", res.TotalCostUSD).
		Msg("Ask completed")

	updated := make([]model.ConversationTurn, 0, len(turns)+2)
	updated = append(updated, turns...)
	updated = append(updated,
		model.ConversationTurn{Role: model.RoleUser, Content: query},
		model.ConversationTurn{Role: model.RoleAssistant, Content: res.Answer, Type: tag},
	)
	return res.Answer, updated, nil
}
