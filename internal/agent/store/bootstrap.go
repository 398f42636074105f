package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	logx "github.com/catalog-agent/server/pkg/logger"
)

// productColumns is the fixed catalog schema, in insertion order. List and
// map values from the source feed are stored as JSON-encoded text; matching
// against them is substring containment over the serialized form.
var productColumns = []string{
	"title", "original_price", "current_price", "description", "ingredients",
	"category", "type", "diet", "baking_category", "review_rating",
	"review_count", "max_quantity", "related_products", "bakers_also_bought",
	"pdf_link", "nutrition_facts", "product_url", "flavor",
}

var columnTypes = map[string]string{
	"original_price": "REAL",
	"current_price":  "REAL",
	"review_rating":  "REAL",
	"review_count":   "INTEGER",
	"max_quantity":   "INTEGER",
}

// indexedColumns get secondary indexes for the common filter paths.
var indexedColumns = []string{
	"title", "category", "type", "current_price", "original_price",
	"review_rating", "diet", "baking_category",
}

// Bootstrap rebuilds the products table from a raw product feed. This is the
// only write path; it runs before the agent serves requests.
func (c *Catalog) Bootstrap(ctx context.Context, products []map[string]any) error {
	if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS products"); err != nil {
		return fmt.Errorf("drop products: %w", err)
	}

	defs := make([]string, 0, len(productColumns))
	for _, col := range productColumns {
		typ := columnTypes[col]
		if typ == "" {
			typ = "TEXT"
		}
		defs = append(defs, fmt.Sprintf("%q %s", col, typ))
	}
	create := fmt.Sprintf(
		"CREATE TABLE products (id INTEGER PRIMARY KEY AUTOINCREMENT, %s)",
		strings.Join(defs, ", "),
	)
	if _, err := c.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create products: %w", err)
	}

	for _, col := range indexedColumns {
		stmt := fmt.Sprintf("CREATE INDEX idx_products_%s ON products(%q)", col, col)
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("index %s: %w", col, err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(productColumns)), ",")
	quoted := make([]string, len(productColumns))
	for i, col := range productColumns {
		quoted[i] = strconv.Quote(col)
	}
	insert := fmt.Sprintf("INSERT INTO products (%s) VALUES (%s)",
		strings.Join(quoted, ", "), placeholders)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, product := range products {
		values := make([]any, len(productColumns))
		for i, col := range productColumns {
			values[i] = normalizeValue(col, product[col])
		}
		if _, err := tx.ExecContext(ctx, insert, values...); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logx.Info().Int("products", len(products)).Msg("catalog bootstrap complete")
	return nil
}

// normalizeValue coerces a raw feed value into its column representation:
// lists and maps become JSON text, price strings lose currency glyphs,
// numeric columns are parsed, empty strings become NULL.
func normalizeValue(col string, v any) any {
	if v == nil {
		return nil
	}
	switch vv := v.(type) {
	case []any, map[string]any:
		b, err := json.Marshal(vv)
		if err != nil {
			return nil
		}
		return string(b)
	}

	switch col {
	case "original_price", "current_price":
		return NormalizePrice(v)
	case "review_rating":
		if f, ok := toFloat(v); ok {
			return f
		}
		return nil
	case "review_count", "max_quantity":
		if f, ok := toFloat(v); ok {
			return int64(f)
		}
		return nil
	}

	if s, ok := v.(string); ok {
		if s == "" {
			return nil
		}
		return s
	}
	return fmt.Sprint(v)
}

// NormalizePrice strips currency glyphs and thousands separators from a
// price value and parses the remainder. Returns nil when nothing numeric
// survives.
func NormalizePrice(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return nil
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case json.Number:
		f, err := vv.Float64()
		return f, err == nil
	}
	return 0, false
}
