// Package store provides read access to the relational product catalog and
// the one-off bootstrap path that populates it.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	errx "github.com/catalog-agent/server/internal/core/error"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// Catalog wraps a pooled read-mostly SQLite handle. Safe for concurrent
// readers; writes happen only through the bootstrap path before serving.
type Catalog struct {
	db *sql.DB
}

// Open opens the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", path, errx.WrapStore(err))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog %q: %w", path, errx.WrapStore(err))
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Query executes a generated query and returns raw rows plus column names.
// Values come back as int64, float64, string or nil.
func (c *Catalog) Query(ctx context.Context, query string) ([][]any, []string, error) {
	logx.Debug().Str("query", query).Msg("executing catalog query")
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range cells {
			if b, ok := v.([]byte); ok {
				cells[i] = string(b)
			}
		}
		out = append(out, cells)
	}
	return out, columns, rows.Err()
}

// Titles returns up to limit known product titles for prompt grounding.
func (c *Catalog) Titles(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.db.QueryContext(ctx, "SELECT title FROM products ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t sql.NullString
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		if t.Valid && t.String != "" {
			titles = append(titles, t.String)
		}
	}
	return titles, rows.Err()
}

// ProductTexts returns the chunks of display text used to build the semantic
// index, one per product, together with per-product metadata mirroring the
// structured columns.
func (c *Catalog) ProductTexts(ctx context.Context) ([]ProductText, error) {
	const q = `SELECT title, description, ingredients, category, type, diet,
		current_price, original_price, review_rating FROM products`
	rows, cols, err := c.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]ProductText, 0, len(rows))
	for _, row := range rows {
		rec := map[string]string{}
		for i, col := range cols {
			if row[i] == nil {
				continue
			}
			rec[col] = fmt.Sprint(row[i])
		}
		pt := ProductText{
			Title:    rec["title"],
			Metadata: rec,
		}
		pt.Text = buildProductText(rec)
		out = append(out, pt)
	}
	return out, nil
}

// ProductText is one embeddable chunk of product copy.
type ProductText struct {
	Title    string
	Text     string
	Metadata map[string]string
}

func buildProductText(rec map[string]string) string {
	text := ""
	for _, col := range []string{"title", "description", "ingredients", "category", "type", "diet"} {
		if v := rec[col]; v != "" {
			if text != "" {
				text += "\n"
			}
			text += v
		}
	}
	return text
}
