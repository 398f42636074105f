package parsers

import (
	"encoding/json"
	"strings"

	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// planEnvelope mirrors the JSON contract of the query-generation prompt.
type planEnvelope struct {
	Analysis struct {
		Intent   []string       `json:"intent"`
		Entities map[string]any `json:"entities"`
		Filters  []string       `json:"filters"`
	} `json:"analysis"`
	SQL string `json:"sql"`
}

// FallbackQueryPlan is used when the generator output cannot be decoded: a
// bare search plan with no generated query, which downstream renders as a
// "couldn't find" answer without touching the store.
func FallbackQueryPlan(query string) model.QueryPlan {
	return model.QueryPlan{
		Intents:  []string{model.IntentSearch},
		Entities: map[string]any{"product_type": query},
		Filters:  []string{},
	}
}

// ParseQueryPlan extracts the JSON object from the generator's answer. The
// model frequently wraps the object in prose or fences, so the parser takes
// the widest brace-delimited window before decoding.
func ParseQueryPlan(content, query string) (plan model.QueryPlan, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "plan_parser").Msgf("panic recovered: %v", r)
			plan = FallbackQueryPlan(query)
			ok = false
		}
	}()

	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}

	window := braceWindow(content)
	if window == "" {
		logx.Warn().Str("component", "plan_parser").Msg("no JSON object in generator output")
		return FallbackQueryPlan(query), false
	}

	var env planEnvelope
	if err := json.Unmarshal([]byte(window), &env); err != nil {
		logx.Warn().Err(err).Str("component", "plan_parser").Msg("generator output is not valid JSON")
		return FallbackQueryPlan(query), false
	}

	plan = model.QueryPlan{
		Intents:        env.Analysis.Intent,
		Entities:       env.Analysis.Entities,
		Filters:        env.Analysis.Filters,
		GeneratedQuery: strings.TrimSpace(env.SQL),
	}
	if len(plan.Intents) == 0 {
		plan.Intents = []string{model.IntentSearch}
	}
	if plan.Entities == nil {
		plan.Entities = map[string]any{}
	}
	if plan.Filters == nil {
		plan.Filters = []string{}
	}
	return plan, true
}

// braceWindow returns the substring from the first '{' to the last '}'.
func braceWindow(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
