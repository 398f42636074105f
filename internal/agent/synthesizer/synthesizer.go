// Package synthesizer merges structured and semantic retrieval output into
// one final answer and scrubs hedging language from generated text.
package synthesizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/catalog-agent/server/internal/agent/graph/prompts"
	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// NoInformationMessage answers requests where neither retrieval path
// produced anything.
const NoInformationMessage = "I'm sorry, I couldn't find relevant information to answer your question."

// countPhrasePatterns detect questions whose answer should collapse to one
// sentence instead of a reformatted list.
var countPhrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^how many`),
	regexp.MustCompile(`number of`),
	regexp.MustCompile(`count of`),
	regexp.MustCompile(`how much`),
	regexp.MustCompile(`what is the total`),
	regexp.MustCompile(`total number`),
	regexp.MustCompile(`how often`),
	regexp.MustCompile(`how frequently`),
}

// Synthesizer produces the final answer from whatever the retrieval paths
// delivered.
type Synthesizer struct {
	completer model.Completer
}

// New builds a synthesizer over the given completion capability.
func New(completer model.Completer) *Synthesizer {
	return &Synthesizer{completer: completer}
}

// Input carries everything synthesis branches on.
type Input struct {
	Query             string
	StructuredResults string
	SemanticResults   string
	IsFollowup        bool
	LastProductQuery  string
	LastProductAnswer string
}

// Synthesize picks the branch matching which retrieval paths produced output:
// structured-only passes the formatter text through (restated in context for
// follow-ups), semantic-only and combined run one completion call each, and
// empty input gets the fixed no-information answer. Generated answers go
// through the cleanup pass; pass-through text does not.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) string {
	contextInfo := ""
	if in.IsFollowup && in.LastProductQuery != "" {
		contextInfo = fmt.Sprintf("\nPrevious question: %s\nPrevious answer: %s\n",
			in.LastProductQuery, in.LastProductAnswer)
	}

	hasStructured := in.StructuredResults != ""
	hasSemantic := in.SemanticResults != ""

	switch {
	case hasStructured && !hasSemantic:
		if !in.IsFollowup {
			return in.StructuredResults
		}
		prompt, err := prompts.RenderRestate(contextInfo, in.Query, in.StructuredResults, isCountPhrase(in.Query))
		if err != nil {
			logx.Error().Err(err).Msg("rendering restate prompt failed")
			return in.StructuredResults
		}
		return s.complete(ctx, prompt, in.StructuredResults)

	case hasSemantic && !hasStructured:
		prompt, err := prompts.RenderSemanticAnswer(contextInfo, in.Query, in.SemanticResults)
		if err != nil {
			logx.Error().Err(err).Msg("rendering semantic answer prompt failed")
			return NoInformationMessage
		}
		return s.complete(ctx, prompt, NoInformationMessage)

	case hasStructured && hasSemantic:
		prompt, err := prompts.RenderCombineAnswer(contextInfo, in.Query, in.StructuredResults, in.SemanticResults)
		if err != nil {
			logx.Error().Err(err).Msg("rendering combine prompt failed")
			return in.StructuredResults
		}
		return s.complete(ctx, prompt, in.StructuredResults)

	default:
		return NoInformationMessage
	}
}

// NonProduct answers a non-product turn conversationally. No retrieval, no
// cleanup pass.
func (s *Synthesizer) NonProduct(ctx context.Context, query string) string {
	prompt, err := prompts.RenderNonProduct(query)
	if err != nil {
		logx.Error().Err(err).Msg("rendering general conversation prompt failed")
		return NoInformationMessage
	}
	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		logx.Warn().Err(err).Msg("general conversation call failed")
		return NoInformationMessage
	}
	return strings.TrimSpace(answer)
}

// complete runs one completion call and cleans the result, degrading to
// fallback on failure.
func (s *Synthesizer) complete(ctx context.Context, prompt, fallback string) string {
	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		logx.Warn().Err(err).Msg("synthesis call failed")
		return fallback
	}
	cleaned := Cleanup(answer)
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

func isCountPhrase(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, re := range countPhrasePatterns {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}
