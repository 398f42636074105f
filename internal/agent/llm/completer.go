// Package llm adapts chat models to the plain text-completion capability the
// retrieval and synthesis components consume.
package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	modelcfg "github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// ChatCompleter turns a chat model into a prompt-in, text-out completer.
type ChatCompleter struct {
	model einomodel.BaseChatModel
	name  string
}

var _ modelcfg.Completer = (*ChatCompleter)(nil)

// NewChatCompleter wraps a chat model. The name is used for cost resolution
// and logging.
func NewChatCompleter(m einomodel.BaseChatModel, name string) *ChatCompleter {
	return &ChatCompleter{model: m, name: name}
}

// Complete runs one generation round with the prompt as a single user
// message and returns the raw text content.
func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("completion (%s): %w", c.name, err)
	}
	if out == nil {
		return "", fmt.Errorf("completion (%s): empty response", c.name)
	}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		pricing := modelcfg.ResolvePricing(c.name)
		_, _, totalC := modelcfg.ComputeCost(out.ResponseMeta.Usage, pricing)
		logx.Debug().
			Str("model", c.name).
			Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
			Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")
	}
	return out.Content, nil
}
