// Package history recovers follow-up context from caller-owned chat history.
package history

import (
	"strings"

	"github.com/catalog-agent/server/internal/agent/model"
)

// productKeywords marks an assistant turn as product-flavoured when its tag
// is missing. Matched case-insensitively against the turn content.
var productKeywords = []string{
	"product", "price", "$", "cost", "expensive", "cheap", "item",
}

// referenceWords are anaphora that point at a previously discussed product.
var referenceWords = []string{"it", "this", "that", "them", "these", "those"}

// shortQueryTokens is the token bound under which a follow-up query is
// considered too brief to stand alone.
const shortQueryTokens = 5

// LastProductContext scans the history backward and returns the most recent
// product-flavoured assistant answer together with the nearest preceding user
// question. Returns empty strings when no such pair exists. Pure function of
// the history, O(n) in turns scanned.
func LastProductContext(turns []model.ConversationTurn) (lastQuery, lastAnswer string) {
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if turn.Role != model.RoleAssistant {
			continue
		}
		if !isProductTurn(turn) {
			continue
		}
		lastAnswer = turn.Content
		for j := i - 1; j >= 0; j-- {
			if turns[j].Role == model.RoleUser {
				lastQuery = turns[j].Content
				break
			}
		}
		break
	}
	return lastQuery, lastAnswer
}

func isProductTurn(turn model.ConversationTurn) bool {
	if strings.EqualFold(turn.Type, model.TurnTypeProduct) {
		return true
	}
	content := strings.ToLower(turn.Content)
	for _, kw := range productKeywords {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

// IsAnaphoric reports whether the query references a prior entity through a
// reference word.
func IsAnaphoric(query string) bool {
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,!?;:'\"")
		for _, ref := range referenceWords {
			if tok == ref {
				return true
			}
		}
	}
	return false
}

// ExpandFollowUp prepends the remembered product query when the current query
// is anaphoric or too short to stand alone. Both retrieval paths apply the
// same expansion before analysis.
func ExpandFollowUp(query, lastProductQuery string) string {
	if lastProductQuery == "" {
		return query
	}
	if IsAnaphoric(query) || len(strings.Fields(query)) <= shortQueryTokens {
		return lastProductQuery + " " + query
	}
	return query
}

// ReferencedProduct mines the previous answer for a bold
// "**Name**: **$price**" product mention so follow-up expansion can name the
// exact product under discussion. Returns empty when no such mention exists.
func ReferencedProduct(lastProductAnswer string) string {
	rest := lastProductAnswer
	for {
		start := strings.Index(rest, "**")
		if start < 0 {
			return ""
		}
		rest = rest[start+2:]
		end := strings.Index(rest, "**")
		if end < 0 {
			return ""
		}
		name := rest[:end]
		rest = rest[end+2:]
		if strings.HasPrefix(rest, ": **$") {
			return strings.TrimSpace(name)
		}
	}
}
