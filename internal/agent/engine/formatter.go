package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/catalog-agent/server/internal/agent/graph/prompts"
	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// NoResultsMessage is the uniform answer for empty result sets and failed
// query generation.
const NoResultsMessage = "I couldn't find any matching products or information."

// Keyword heuristics that decide which facts a single-row answer surfaces.
var (
	stockKeywords = []string{"left", "remaining", "in stock"}
	priceKeywords = []string{"price", "cost", "amount", "how much", "current price"}

	// Narrower sets used when both quantity and price columns are present.
	bothStockKeywords = []string{"stock", "left", "remaining", "in stock"}
	bothPriceKeywords = []string{"price", "cost", "how much", "current price"}
)

var stockPhraseRE = regexp.MustCompile(`(?i)how many (.*?) (left|remaining|in stock)`)

// maxListRows caps every multi-row rendering.
const maxListRows = 20

// listHeaderThreshold is the row count above which the bullet list gets an
// introductory header line.
const listHeaderThreshold = 5

// Formatter renders raw structured rows into chat-ready text. Shapes without
// a deterministic rendering are narrated by the completion service.
type Formatter struct {
	completer model.Completer
}

// NewFormatter builds a formatter over the given completion capability.
func NewFormatter(completer model.Completer) *Formatter {
	return &Formatter{completer: completer}
}

// Format renders rows for the original query. totalCount, when non-nil,
// carries the full match count for listings that were capped to one page.
func (f *Formatter) Format(ctx context.Context, rows [][]any, columns []string, query string, plan model.QueryPlan, totalCount *int64) string {
	if len(rows) == 0 {
		return NoResultsMessage
	}

	lowerQuery := strings.ToLower(query)
	isStockQuery := containsAny(lowerQuery, stockKeywords)
	isPriceQuery := containsAny(lowerQuery, priceKeywords)

	quantityIdx := colIndex(columns, "max_quantity")
	priceIdx := colIndex(columns, "current_price")
	titleIdx := colIndex(columns, "title")

	if quantityIdx >= 0 && priceIdx >= 0 && len(rows) == 1 {
		return f.formatSingleWithBoth(rows[0], titleIdx, quantityIdx, priceIdx, lowerQuery, plan)
	}

	if isPriceQuery && priceIdx >= 0 && len(rows) == 1 {
		price := cellString(rows[0][priceIdx])
		if name := cellAt(rows[0], titleIdx); name != "" {
			return fmt.Sprintf("The price of %s is $%s.", name, price)
		}
		return fmt.Sprintf("The price is $%s.", price)
	}

	if isStockQuery && quantityIdx >= 0 && len(rows) == 1 {
		left := cellString(rows[0][quantityIdx])
		name := ""
		if m := stockPhraseRE.FindStringSubmatch(query); m != nil {
			name = strings.TrimSpace(m[1])
		}
		if name != "" {
			return fmt.Sprintf("There are %s %s left in stock.", left, name)
		}
		return fmt.Sprintf("There are %s items left in stock.", left)
	}

	if len(rows) > 1 && (titleIdx >= 0 || priceIdx >= 0) {
		return formatProductList(rows, columns)
	}

	return f.narrate(ctx, rows, columns, query, plan, totalCount)
}

// formatSingleWithBoth composes the one-row answer when both a quantity and a
// price column are present. Intent tags and keyword heuristics pick which
// facts to surface; ambiguity defaults to both.
func (f *Formatter) formatSingleWithBoth(row []any, titleIdx, quantityIdx, priceIdx int, lowerQuery string, plan model.QueryPlan) string {
	name := cellAt(row, titleIdx)
	left := cellString(row[quantityIdx])
	price := cellString(row[priceIdx])

	bothAsked := (plan.HasIntent(model.IntentPrice) && plan.HasIntent(model.IntentCount)) ||
		(containsAny(lowerQuery, bothStockKeywords) && containsAny(lowerQuery, bothPriceKeywords))
	priceAsked := plan.HasIntent(model.IntentPrice) || containsAny(lowerQuery, bothPriceKeywords)
	stockAsked := plan.HasIntent(model.IntentCount) || containsAny(lowerQuery, bothStockKeywords)

	switch {
	case bothAsked:
		if name != "" {
			return fmt.Sprintf("There are %s %s left in stock. The price is $%s.", left, name, price)
		}
		return fmt.Sprintf("There are %s items left in stock. The price is $%s.", left, price)
	case priceAsked:
		if name != "" {
			return fmt.Sprintf("The price of the %s is **$%s**.", name, price)
		}
		return fmt.Sprintf("The price is **$%s**.", price)
	case stockAsked:
		if name != "" {
			return fmt.Sprintf("There are %s %s left in stock.", left, name)
		}
		return fmt.Sprintf("There are %s items left in stock.", left)
	default:
		if name != "" {
			return fmt.Sprintf("There are %s %s left in stock. The price is $%s.", left, name, price)
		}
		return fmt.Sprintf("There are %s items left in stock. The price is $%s.", left, price)
	}
}

// listSkipColumns are rendered through dedicated lines, not generic fields.
var listSkipColumns = map[string]bool{
	"title": true, "review_rating": true, "review_count": true,
	"category": true, "baking_category": true, "type": true,
}

func formatProductList(rows [][]any, columns []string) string {
	showCount := len(rows)
	if showCount > maxListRows {
		showCount = maxListRows
	}

	titleIdx := colIndex(columns, "title")
	ratingIdx := colIndex(columns, "review_rating")
	reviewsIdx := colIndex(columns, "review_count")

	var lines []string
	if showCount > listHeaderThreshold {
		lines = append(lines, fmt.Sprintf("Here are %d products available:", showCount))
	}
	for _, row := range rows[:showCount] {
		line := "- Product"
		if name := cellAt(row, titleIdx); name != "" {
			line = "- " + name
		}

		rating := cellAt(row, ratingIdx)
		reviews := cellAt(row, reviewsIdx)
		switch {
		case nonZero(rating) && nonZero(reviews):
			line += fmt.Sprintf("\n    - Rating: %s (%s reviews)", rating, reviews)
		case nonZero(rating):
			line += fmt.Sprintf("\n    - Rating: %s (not reviewed yet)", rating)
		default:
			line += "\n    - Rating: not reviewed yet"
		}

		var catFields []string
		for _, catCol := range []string{"category", "baking_category", "type"} {
			if idx := colIndex(columns, catCol); idx >= 0 {
				if v := flattenValue(row[idx]); v != "" {
					catFields = append(catFields, v)
				}
			}
		}
		if len(catFields) > 0 {
			line += "\n    - Categories: " + strings.Join(catFields, ", ")
		}

		for idx, col := range columns {
			if listSkipColumns[col] {
				continue
			}
			value := flattenValue(row[idx])
			if value == "" {
				continue
			}
			if strings.Contains(col, "url") && strings.HasPrefix(value, "http") {
				value = fmt.Sprintf("[%s](%s)", value, value)
			}
			line += fmt.Sprintf("\n    - %s: %s", fieldName(col), value)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// narrate renders rows the deterministic branches do not cover (counts,
// column-less aggregates) through one completion call. The prompt forbids
// omitting non-empty result lists and hedging language.
func (f *Formatter) narrate(ctx context.Context, rows [][]any, columns []string, query string, plan model.QueryPlan, totalCount *int64) string {
	records := make([]map[string]any, 0, maxListRows)
	for _, row := range rows {
		if len(records) == maxListRows {
			break
		}
		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	resultsJSON, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		resultsJSON = []byte(fmt.Sprint(records))
	}

	intro := ""
	if totalCount != nil {
		intro = fmt.Sprintf("There are %d matching products.", *totalCount)
		if int(*totalCount) > len(rows) {
			intro += fmt.Sprintf(" Here are the first %d:", len(rows))
		} else if *totalCount > 0 {
			intro += " Here they are:"
		}
	}

	prompt, err := prompts.RenderFormatResults(intro, query, plan.Intents, string(resultsJSON))
	if err != nil {
		logx.Error().Err(err).Msg("rendering narration prompt failed")
		return plainRecords(intro, records)
	}
	answer, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		logx.Warn().Err(err).Msg("result narration failed, falling back to plain rendering")
		return plainRecords(intro, records)
	}
	return strings.TrimSpace(answer)
}

// plainRecords is the narration fallback when the completion service is
// unavailable: the intro plus one line per field.
func plainRecords(intro string, records []map[string]any) string {
	var b strings.Builder
	if intro != "" {
		b.WriteString(intro)
	}
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := flattenValue(rec[k])
			if v == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("- %s: %s", fieldName(k), v))
		}
	}
	if b.Len() == 0 {
		return NoResultsMessage
	}
	return b.String()
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func colIndex(columns []string, name string) int {
	for i, col := range columns {
		if col == name {
			return i
		}
	}
	return -1
}

// cellAt returns the string form of row[idx], or "" when idx is -1.
func cellAt(row []any, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cellString(row[idx])
}

func cellString(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(vv, 10)
	default:
		return fmt.Sprint(vv)
	}
}

// nonZero treats nil, "", "0" and "0.0"-style strings as empty, matching how
// ratings of zero render as "not reviewed yet".
func nonZero(s string) bool {
	if s == "" {
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return true
}

// flattenValue renders a cell for display, decoding JSON-encoded lists and
// maps stored in text columns into comma-joined strings.
func flattenValue(v any) string {
	s := cellString(v)
	if s == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(s, "["):
		var list []any
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			return strings.Join(parts, ", ")
		}
	case strings.HasPrefix(s, "{"):
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s: %v", k, obj[k]))
			}
			return strings.Join(parts, ", ")
		}
	}
	return s
}

// fieldName turns a column name into its display form: underscores to
// spaces, first letter capitalized.
func fieldName(col string) string {
	name := strings.ReplaceAll(col, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
