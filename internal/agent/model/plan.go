package model

// Query plan intent tags produced by the structured query engine.
const (
	IntentCount     = "count"
	IntentSearch    = "search"
	IntentCompare   = "compare"
	IntentPrice     = "price"
	IntentDetails   = "details"
	IntentFilter    = "filter"
	IntentAggregate = "aggregate"
)

// QueryPlan is the ephemeral result of translating a natural-language query
// into a relational query. Produced by the structured query engine, consumed
// immediately, never persisted.
type QueryPlan struct {
	Intents        []string       `json:"intent"`
	Entities       map[string]any `json:"entities"`
	Filters        []string       `json:"filters"`
	GeneratedQuery string         `json:"-"`
}

// HasIntent reports whether the plan carries the given intent tag.
func (p QueryPlan) HasIntent(tag string) bool {
	for _, it := range p.Intents {
		if it == tag {
			return true
		}
	}
	return false
}

// IsListRequest reports whether the plan describes a listing (search intent
// without a count intent). Listings get a separate total-count query.
func (p QueryPlan) IsListRequest() bool {
	return p.HasIntent(IntentSearch) && !p.HasIntent(IntentCount)
}
