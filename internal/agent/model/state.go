package model

// Conversation roles and turn tags used in caller-owned history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	TurnTypeProduct    = "product"
	TurnTypeNonProduct = "non-product"
)

// ConversationTurn is one entry of the caller-owned chat history. The agent
// only reads history and appends exactly one user and one assistant turn per
// Ask call; persistence stays with the caller.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// QueryInput is the graph input for a single Ask invocation. The follow-up
// context fields are recovered from history by the context tracker before
// the graph runs.
type QueryInput struct {
	ConversationID    string `json:"conversation_id"`
	Query             string `json:"query"`
	LastProductQuery  string `json:"last_product_query,omitempty"`
	LastProductAnswer string `json:"last_product_answer,omitempty"`
}

// RouteDecision is the classifier output for one reasoning iteration. It is
// the single source of truth for routing decisions in that iteration.
type RouteDecision struct {
	IsProductQuestion bool   `json:"is_product_question"`
	IsProductFollowup bool   `json:"is_product_followup"`
	NeedsStructured   bool   `json:"needs_structured_data"`
	NeedsSemantic     bool   `json:"needs_semantic_search"`
	QueryType         string `json:"query_type"`
	IsNonProduct      bool   `json:"is_non_product"`
	DataSufficiency   string `json:"data_sufficiency"`
	NextAction        string `json:"next_action"`
	ReasoningNotes    string `json:"reasoning_notes"`
}

// AgentState stores per-invocation state for the Eino graph.
// Concurrency model:
//   - Registered as graph-local state via compose.WithGenLocalState; one
//     instance exists per Ask invocation and is never shared across
//     conversations.
//   - All reads/writes happen only inside Eino state handlers
//     (WithStatePreHandler, WithStatePostHandler) or compose.ProcessState,
//     which serialize access. No additional locking is required.
type AgentState struct {
	ConversationID string
	Query          string
	QueryType      string

	// Routing flags from the most recent classification.
	IsProductQuestion bool
	IsProductFollowup bool
	IsNonProduct      bool
	NeedsStructured   bool
	NeedsSemantic     bool

	// Per-path completion flags. Each retrieval path runs at most once per
	// invocation; the flag gates re-entry.
	StructuredComplete bool
	SemanticComplete   bool

	// Retrieved payloads. Opaque text once past retrieval.
	StructuredResults string
	SemanticResults   string

	// Routing bookkeeping.
	LastNode        string
	ReasoningStep   string
	NextAction      string
	IterationCount  int
	DataSufficiency string
	ReasoningNotes  string

	// Follow-up context carried over from history.
	LastProductQuery  string
	LastProductAnswer string

	// Set at most once; terminates the loop.
	FinalAnswer string

	// Accumulated LLM cost (USD) across model invocations for this query.
	TotalCostUSD float64
}

// Apply folds a route decision into the state after classification.
func (s *AgentState) Apply(d RouteDecision) {
	s.IsProductQuestion = d.IsProductQuestion
	s.IsProductFollowup = d.IsProductFollowup
	s.IsNonProduct = d.IsNonProduct
	s.NeedsStructured = d.NeedsStructured
	s.NeedsSemantic = d.NeedsSemantic
	s.QueryType = d.QueryType
	s.DataSufficiency = d.DataSufficiency
	s.NextAction = d.NextAction
	s.ReasoningNotes = d.ReasoningNotes
	s.ReasoningStep = "decision"
}

// TurnTag returns the history tag for the assistant turn produced by this
// invocation. Non-product classification wins over the product flags.
func (s *AgentState) TurnTag() string {
	if s.IsNonProduct {
		return TurnTypeNonProduct
	}
	if s.IsProductQuestion || s.IsProductFollowup {
		return TurnTypeProduct
	}
	return TurnTypeNonProduct
}
