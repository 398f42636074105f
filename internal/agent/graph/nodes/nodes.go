// Package nodes holds the lambda nodes, state handlers and routing
// conditions of the reasoning graph.
package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/catalog-agent/server/internal/agent/graph/parsers"
	"github.com/catalog-agent/server/internal/agent/graph/prompts"
	"github.com/catalog-agent/server/internal/agent/model"
	"github.com/catalog-agent/server/internal/agent/synthesizer"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// Graph node names.
const (
	NodeClassifyPrompt  = "classify_prompt"
	NodeClassifyModel   = "classify_model"
	NodeRouteParse      = "route_parse"
	NodeStructuredQuery = "structured_query"
	NodeSemanticSearch  = "semantic_search"
	NodeSynthesize      = "synthesize"
	NodeGeneralChat     = "general_chat"
)

// last-node markers recorded in state for the classifier's status section.
const (
	lastNodeClassify   = "classify"
	lastNodeStructured = "structured_query"
	lastNodeSemantic   = "semantic_search"
	lastNodeSynthesize = "synthesize"
	lastNodeNonProduct = "non_product"
)

// DefaultMaxIterations bounds the classify/retrieve loop when the configured
// value is unusable.
const DefaultMaxIterations = 4

// StructuredEngine is the structured retrieval path.
type StructuredEngine interface {
	Process(ctx context.Context, query, lastProductQuery, lastProductAnswer string) string
}

// SemanticRetriever is the semantic retrieval path.
type SemanticRetriever interface {
	Retrieve(ctx context.Context, query, lastProductQuery string) string
}

// AnswerSynthesizer merges retrieval output into the final answer.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, in synthesizer.Input) string
	NonProduct(ctx context.Context, query string) string
}

// NewClassifyPromptPreHandler seeds state from the query input on the first
// pass and counts reasoning iterations on every pass.
func NewClassifyPromptPreHandler() func(context.Context, model.QueryInput, *model.AgentState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AgentState) (model.QueryInput, error) {
		if s.IterationCount == 0 {
			s.ConversationID = in.ConversationID
			s.Query = in.Query
			s.LastProductQuery = in.LastProductQuery
			s.LastProductAnswer = in.LastProductAnswer
			s.TotalCostUSD = 0
		}
		s.IterationCount++
		return in, nil
	}
}

// NewClassifyPromptNode builds the classifier message list from state: the
// routing contract as system prompt, the raw query as user message.
func NewClassifyPromptNode(convCfg *model.ConversationConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		var vars prompts.ClassifyVars
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			vars = prompts.ClassifyVars{
				Query:                s.Query,
				ChatContext:          classifyContext(s, convCfg.AnswerPreview),
				IterationCount:       s.IterationCount,
				LastNode:             s.LastNode,
				NeedsStructured:      s.NeedsStructured,
				StructuredComplete:   s.StructuredComplete,
				NeedsSemantic:        s.NeedsSemantic,
				SemanticComplete:     s.SemanticComplete,
				HasStructuredResults: s.StructuredResults != "",
				HasSemanticResults:   s.SemanticResults != "",
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		systemPrompt, err := prompts.RenderClassify(ctx, vars)
		if err != nil {
			return nil, fmt.Errorf("render classify prompt: %w", err)
		}

		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(vars.Query),
		}, nil
	})
}

// classifyContext summarizes the previous product exchange for the
// classifier, truncating the answer to bound prompt size.
func classifyContext(s *model.AgentState, preview int) string {
	if s.LastProductQuery == "" {
		return ""
	}
	answer := s.LastProductAnswer
	if preview > 0 && len(answer) > preview {
		answer = answer[:preview]
	}
	return fmt.Sprintf("Previous product question: %s\nPrevious product answer: %s", s.LastProductQuery, answer)
}

// NewClassifyModelPostHandler computes and accumulates usage cost for the
// classifier model.
func NewClassifyModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AgentState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AgentState) (*schema.Message, error) {
		if out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			logx.Debug().
				Str("conversation_id", state.ConversationID).
				Str("node", NodeClassifyModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")
			state.TotalCostUSD += totalC
		}
		return out, nil
	}
}

// NewRouteParseNode decodes the classifier's JSON answer into a route
// decision, falling back to conservative routing on unusable output.
func NewRouteParseNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (model.RouteDecision, error) {
		decision, ok := parsers.ParseRouteDecision(resp.Content)
		if !ok {
			logx.Warn().Msg("Classifier output unusable; using conservative fallback routing")
		}
		return decision, nil
	})
}

// NewRouteParsePostHandler folds the decision into state.
func NewRouteParsePostHandler() func(context.Context, model.RouteDecision, *model.AgentState) (model.RouteDecision, error) {
	return func(ctx context.Context, out model.RouteDecision, state *model.AgentState) (model.RouteDecision, error) {
		state.Apply(out)
		state.LastNode = lastNodeClassify
		logx.Debug().
			Str("conversation_id", state.ConversationID).
			Bool("is_non_product", out.IsNonProduct).
			Bool("needs_structured", out.NeedsStructured).
			Bool("needs_semantic", out.NeedsSemantic).
			Str("query_type", out.QueryType).
			Int("iteration", state.IterationCount).
			Msg("Route decision applied")
		return out, nil
	}
}

// NewRouteCondition returns the deterministic transition function over state:
// non-product wins, then each retrieval path runs at most once, then
// synthesis. The iteration ceiling forces synthesis with partial data so the
// loop always terminates.
func NewRouteCondition(maxIterations int) func(context.Context, model.RouteDecision) (string, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return func(ctx context.Context, _ model.RouteDecision) (string, error) {
		var target string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			switch {
			case s.FinalAnswer != "" && (s.LastNode == lastNodeSynthesize || s.LastNode == lastNodeNonProduct):
				// A terminal node already answered; synthesize passes it
				// through unchanged.
				target = NodeSynthesize
			case s.IsNonProduct:
				target = NodeGeneralChat
			case s.IterationCount > maxIterations:
				logx.Warn().
					Int("iteration", s.IterationCount).
					Int("max_iterations", maxIterations).
					Msg("Iteration limit reached; forcing synthesis with partial data")
				target = NodeSynthesize
			case s.NeedsStructured && !s.StructuredComplete:
				target = NodeStructuredQuery
			case s.NeedsSemantic && !s.SemanticComplete:
				target = NodeSemanticSearch
			default:
				target = NodeSynthesize
			}
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		logx.Debug().Str("target", target).Msg("Routing")
		return target, nil
	}
}

// NewStructuredQueryNode runs the structured retrieval path and loops
// control back to classification. State is read before and written after the
// engine call so external calls never run under the state lock.
func NewStructuredQueryNode(eng StructuredEngine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.RouteDecision) (model.QueryInput, error) {
		in, err := queryInputFromState(ctx)
		if err != nil {
			return model.QueryInput{}, err
		}

		results := eng.Process(ctx, in.Query, in.LastProductQuery, in.LastProductAnswer)

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			s.StructuredResults = results
			s.StructuredComplete = true
			s.LastNode = lastNodeStructured
			return nil
		})
		if err != nil {
			return model.QueryInput{}, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

// NewSemanticSearchNode runs the semantic retrieval path and loops control
// back to classification.
func NewSemanticSearchNode(ret SemanticRetriever) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.RouteDecision) (model.QueryInput, error) {
		in, err := queryInputFromState(ctx)
		if err != nil {
			return model.QueryInput{}, err
		}

		results := ret.Retrieve(ctx, in.Query, in.LastProductQuery)

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			s.SemanticResults = results
			s.SemanticComplete = true
			s.LastNode = lastNodeSemantic
			return nil
		})
		if err != nil {
			return model.QueryInput{}, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

// NewSynthesizeNode produces the final answer from whatever retrieval
// delivered. Re-entry with an already-set final answer passes it through
// without a second synthesis.
func NewSynthesizeNode(syn AnswerSynthesizer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.RouteDecision) (*schema.Message, error) {
		var (
			in       synthesizer.Input
			existing string
			turnType string
			cost     float64
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			if s.FinalAnswer != "" && (s.LastNode == lastNodeSynthesize || s.LastNode == lastNodeNonProduct) {
				existing = s.FinalAnswer
			}
			in = synthesizer.Input{
				Query:             s.Query,
				StructuredResults: s.StructuredResults,
				SemanticResults:   s.SemanticResults,
				IsFollowup:        s.IsProductFollowup,
				LastProductQuery:  s.LastProductQuery,
				LastProductAnswer: s.LastProductAnswer,
			}
			turnType = s.TurnTag()
			cost = s.TotalCostUSD
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if existing != "" {
			return finalMessage(existing, turnType, cost), nil
		}

		answer := syn.Synthesize(ctx, in)

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			s.FinalAnswer = answer
			s.LastNode = lastNodeSynthesize
			cost = s.TotalCostUSD
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return finalMessage(answer, turnType, cost), nil
	})
}

// NewGeneralChatNode answers non-product turns conversationally. Terminal;
// no retrieval runs.
func NewGeneralChatNode(syn AnswerSynthesizer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.RouteDecision) (*schema.Message, error) {
		var query string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			query = s.Query
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		answer := syn.NonProduct(ctx, query)

		var cost float64
		err = compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
			s.FinalAnswer = answer
			s.LastNode = lastNodeNonProduct
			cost = s.TotalCostUSD
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return finalMessage(answer, model.TurnTypeNonProduct, cost), nil
	})
}

func queryInputFromState(ctx context.Context) (model.QueryInput, error) {
	var in model.QueryInput
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.AgentState) error {
		in = model.QueryInput{
			ConversationID:    s.ConversationID,
			Query:             s.Query,
			LastProductQuery:  s.LastProductQuery,
			LastProductAnswer: s.LastProductAnswer,
		}
		return nil
	})
	if err != nil {
		return model.QueryInput{}, fmt.Errorf("failed to access state: %w", err)
	}
	return in, nil
}

// finalMessage wraps the answer as the graph output, carrying the turn tag
// and accumulated cost in Extra for the caller.
func finalMessage(answer, turnType string, totalCostUSD float64) *schema.Message {
	msg := schema.AssistantMessage(answer, nil)
	msg.Extra = map[string]any{
		"turn_type":            turnType,
		"usage_cost_total_usd": totalCostUSD,
	}
	return msg
}
