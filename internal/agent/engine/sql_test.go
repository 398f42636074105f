package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCountQuery(t *testing.T) {
	assert.True(t, isCountQuery("SELECT COUNT(id) FROM products"))
	assert.True(t, isCountQuery("  select count(id) from products where diet LIKE '%Gluten-Free%'"))
	assert.False(t, isCountQuery("SELECT title, COUNT(id) FROM products GROUP BY title"))
	assert.False(t, isCountQuery("SELECT * FROM products"))
	assert.False(t, isCountQuery(""))
}

func TestConvertCountToSelectAll(t *testing.T) {
	got := convertCountToSelectAll("SELECT COUNT(id) FROM products WHERE diet LIKE '%Gluten-Free%'")
	assert.Equal(t, "SELECT * FROM products WHERE diet LIKE '%Gluten-Free%'", got)

	// Case of the original WHERE clause is preserved.
	got = convertCountToSelectAll("SELECT COUNT(id) from products WHERE type LIKE '%Cookie%'")
	assert.Equal(t, "SELECT * from products WHERE type LIKE '%Cookie%'", got)

	// No FROM clause: returned unchanged.
	assert.Equal(t, "SELECT COUNT(id)", convertCountToSelectAll("SELECT COUNT(id)"))
}

func TestListCountSQL(t *testing.T) {
	got := listCountSQL("SELECT title, current_price FROM products WHERE type LIKE '%Cookie%' ORDER BY current_price ASC LIMIT 20")
	assert.Equal(t, "SELECT COUNT(id) FROM products WHERE type LIKE '%Cookie%'", got)

	got = listCountSQL("SELECT title FROM products LIMIT 20")
	assert.Equal(t, "SELECT COUNT(id) FROM products", got)

	got = listCountSQL("SELECT title FROM products WHERE diet LIKE '%Vegan%'")
	assert.Equal(t, "SELECT COUNT(id) FROM products WHERE diet LIKE '%Vegan%'", got)

	assert.Empty(t, listCountSQL("not a query"))
}
