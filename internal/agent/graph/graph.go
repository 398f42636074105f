// Package graph composes the reasoning state machine: classification,
// conditional retrieval, and answer synthesis as a compiled Eino graph.
package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/catalog-agent/server/internal/agent/graph/nodes"
	"github.com/catalog-agent/server/internal/agent/graph/observers"
	"github.com/catalog-agent/server/internal/agent/graph/prompts"
	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// Result is one completed graph run.
type Result struct {
	Answer       string
	TurnType     string
	TotalCostUSD float64
}

// Runner is a thin wrapper to execute the compiled graph with the public QueryInput.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (Result, error)
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels   *nodes.ChatModels
	Conversation *model.ConversationConfig
	Engine       nodes.StructuredEngine
	Retriever    nodes.SemanticRetriever
	Synthesizer  nodes.AnswerSynthesizer
}

// GraphBuilder handles the construction of the reasoning graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (Result, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return Result{}, err
	}
	if out == nil {
		return Result{}, nil
	}

	res := Result{Answer: out.Content}
	if v, ok := out.Extra["turn_type"].(string); ok {
		res.TurnType = v
	}
	if v, ok := out.Extra["usage_cost_total_usd"].(float64); ok {
		res.TotalCostUSD = v
	}
	return res, nil
}

// BuildReasoningGraph validates the configuration, builds the runnable graph
// and returns a Runner. Missing prompt templates fail here, at startup.
func BuildReasoningGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Classifier == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Conversation == nil {
		return nil, fmt.Errorf("conversation config is nil")
	}
	if config.Engine == nil || config.Retriever == nil || config.Synthesizer == nil {
		return nil, fmt.Errorf("retrieval or synthesis components are nil")
	}
	if err := prompts.Validate(); err != nil {
		return nil, fmt.Errorf("prompt templates: %w", err)
	}

	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Reasoning graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled reasoning graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AgentState {
				return &model.AgentState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeClassifyPrompt,
		nodes.NewClassifyPromptNode(b.config.Conversation),
		compose.WithStatePreHandler(nodes.NewClassifyPromptPreHandler()),
	)

	b.graph.AddChatModelNode(nodes.NodeClassifyModel,
		b.config.ChatModels.Classifier,
		compose.WithStatePostHandler(nodes.NewClassifyModelPostHandler(b.config.ChatModels.ClassifierModelName)),
	)

	b.graph.AddLambdaNode(nodes.NodeRouteParse,
		nodes.NewRouteParseNode(),
		compose.WithStatePostHandler(nodes.NewRouteParsePostHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeStructuredQuery,
		nodes.NewStructuredQueryNode(b.config.Engine),
	)

	b.graph.AddLambdaNode(nodes.NodeSemanticSearch,
		nodes.NewSemanticSearchNode(b.config.Retriever),
	)

	b.graph.AddLambdaNode(nodes.NodeSynthesize,
		nodes.NewSynthesizeNode(b.config.Synthesizer),
	)

	b.graph.AddLambdaNode(nodes.NodeGeneralChat,
		nodes.NewGeneralChatNode(b.config.Synthesizer),
	)
}

// addEdges creates the main flow connections between nodes. Retrieval nodes
// loop back to classification for re-evaluation.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeClassifyPrompt},
		{nodes.NodeClassifyPrompt, nodes.NodeClassifyModel},
		{nodes.NodeClassifyModel, nodes.NodeRouteParse},
		{nodes.NodeStructuredQuery, nodes.NodeClassifyPrompt},
		{nodes.NodeSemanticSearch, nodes.NodeClassifyPrompt},
		{nodes.NodeSynthesize, compose.END},
		{nodes.NodeGeneralChat, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the conditional routing branch after route parsing
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(b.config.Conversation.MaxIterations),
		map[string]bool{
			nodes.NodeStructuredQuery: true,
			nodes.NodeSemanticSearch:  true,
			nodes.NodeSynthesize:      true,
			nodes.NodeGeneralChat:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRouteParse, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Each reasoning iteration takes up to four steps (prompt, model, parse,
	// branch target); bound total steps so the loop can never run away.
	maxIterations := b.config.Conversation.MaxIterations
	if maxIterations <= 0 {
		maxIterations = nodes.DefaultMaxIterations
	}
	maxSteps := 10 + maxIterations*4
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
