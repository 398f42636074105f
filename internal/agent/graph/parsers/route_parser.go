// Package parsers turns untyped completion output into typed decisions and
// plans. Completion output is treated as unreliable: every parser strips
// surrounding prose, tolerates missing keys and falls back to conservative
// defaults instead of failing the request.
package parsers

import (
	"encoding/json"
	"strings"

	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// maxContentLen guards against pathological completion output.
const maxContentLen = 128 * 1024 // 128KB

// FallbackRouteDecision is applied when the classifier output cannot be
// decoded. It routes the turn to general conversation while recording that
// both retrieval paths would have been considered.
func FallbackRouteDecision() model.RouteDecision {
	return model.RouteDecision{
		IsNonProduct:    true,
		NeedsStructured: true,
		NeedsSemantic:   true,
		QueryType:       "general",
		DataSufficiency: "NONE",
		NextAction:      "synthesize",
	}
}

// ParseRouteDecision decodes the classifier's JSON answer. The second return
// reports whether the content decoded cleanly; when false the returned
// decision is FallbackRouteDecision.
func ParseRouteDecision(content string) (decision model.RouteDecision, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "route_parser").Msgf("panic recovered: %v", r)
			decision = FallbackRouteDecision()
			ok = false
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "route_parser").
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}

	cleaned := stripCodeFences(content)
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		logx.Warn().Err(err).Str("component", "route_parser").Msg("classifier output is not valid JSON")
		return FallbackRouteDecision(), false
	}

	// Missing keys get the same conservative defaults on both sides of the
	// decode: structured retrieval defaults on, semantic off.
	return model.RouteDecision{
		IsProductQuestion: boolKey(raw, "is_product_question", false),
		IsProductFollowup: boolKey(raw, "is_product_followup", false),
		NeedsStructured:   boolKey(raw, "needs_structured_data", true),
		NeedsSemantic:     boolKey(raw, "needs_semantic_search", false),
		QueryType:         stringKey(raw, "query_type", "general"),
		IsNonProduct:      boolKey(raw, "is_non_product", false),
		DataSufficiency:   stringKey(raw, "data_sufficiency", "NONE"),
		NextAction:        stringKey(raw, "next_action", "synthesize"),
		ReasoningNotes:    stringKey(raw, "reasoning_notes", ""),
	}, true
}

// stripCodeFences removes markdown code fence markers wrapping a JSON body.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func boolKey(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func stringKey(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
