package engine

import "strings"

// isCountQuery reports whether a generated query is a pure count.
func isCountQuery(sql string) bool {
	lower := strings.ToLower(strings.TrimSpace(sql))
	return strings.HasPrefix(lower, "select count(") && strings.Contains(lower, "from")
}

// convertCountToSelectAll rewrites a count query into a select-all with the
// same FROM tail, so the formatter has a concrete row to describe when the
// count turns out to be exactly one.
func convertCountToSelectAll(countSQL string) string {
	idx := strings.Index(strings.ToLower(countSQL), " from ")
	if idx < 0 {
		return countSQL
	}
	return "SELECT * " + strings.TrimSpace(countSQL[idx+1:])
}

// listCountSQL derives the total-count query for a listing: the original FROM
// tail with ORDER BY and LIMIT stripped, wrapped in COUNT(id). Returns ""
// when the query has no FROM clause.
func listCountSQL(listSQL string) string {
	lower := strings.ToLower(listSQL)
	idx := strings.Index(lower, " from ")
	if idx < 0 {
		return ""
	}
	tail := listSQL[idx+len(" from "):]
	lowerTail := lower[idx+len(" from "):]
	if cut := strings.Index(lowerTail, " order by "); cut >= 0 {
		tail = tail[:cut]
		lowerTail = lowerTail[:cut]
	}
	if cut := strings.Index(lowerTail, " limit "); cut >= 0 {
		tail = tail[:cut]
	}
	return "SELECT COUNT(id) FROM " + strings.TrimSpace(tail)
}
