// Package prompts owns the embedded prompt templates and their renderers.
// Templates are rendered with explicit token replacement so JSON braces in
// the template bodies never collide with a formatting grammar.
package prompts

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Template names. Get fails fast on anything not listed here.
const (
	TemplateClassify      = "classify.txt"
	TemplateGenerateQuery = "generate_query.txt"
	TemplateFormatResults = "format_results.txt"
	TemplateSemantic      = "semantic_answer.txt"
	TemplateCombine       = "combine_answer.txt"
	TemplateRestateRich   = "restate_rich.txt"
	TemplateRestateCount  = "restate_count.txt"
	TemplateNonProduct    = "non_product.txt"
)

var allTemplates = []string{
	TemplateClassify,
	TemplateGenerateQuery,
	TemplateFormatResults,
	TemplateSemantic,
	TemplateCombine,
	TemplateRestateRich,
	TemplateRestateCount,
	TemplateNonProduct,
}

// Get returns the raw template text for a name.
func Get(name string) (string, error) {
	b, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("prompt template %q: %w", name, err)
	}
	return string(b), nil
}

// Validate confirms every known template is present and non-empty. A missing
// template is a fatal configuration error; call this at startup, not
// per-request.
func Validate() error {
	for _, name := range allTemplates {
		text, err := Get(name)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("prompt template %q is empty", name)
		}
	}
	return nil
}

func render(name string, vars map[string]string) (string, error) {
	text, err := Get(name)
	if err != nil {
		return "", err
	}
	// Longer tokens first so {context_info} is never consumed by {context}.
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	pairs := make([]string, 0, len(vars)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(text), nil
}

// ClassifyVars carries the reasoning status rendered into the classifier
// prompt so the model can re-evaluate after each retrieval.
type ClassifyVars struct {
	Query                string
	ChatContext          string
	IterationCount       int
	LastNode             string
	NeedsStructured      bool
	StructuredComplete   bool
	NeedsSemantic        bool
	SemanticComplete     bool
	HasStructuredResults bool
	HasSemanticResults   bool
}

// RenderClassify renders the classifier system prompt and routes it through
// the Eino prompt component so prompt callbacks observe the rendered text.
func RenderClassify(ctx context.Context, v ClassifyVars) (string, error) {
	content, err := render(TemplateClassify, map[string]string{
		"query":                  v.Query,
		"chat_context":           v.ChatContext,
		"iteration_count":        strconv.Itoa(v.IterationCount),
		"last_node":              v.LastNode,
		"needs_structured_data":  strconv.FormatBool(v.NeedsStructured),
		"structured_complete":    strconv.FormatBool(v.StructuredComplete),
		"needs_semantic_search":  strconv.FormatBool(v.NeedsSemantic),
		"semantic_complete":      strconv.FormatBool(v.SemanticComplete),
		"has_structured_results": strconv.FormatBool(v.HasStructuredResults),
		"has_semantic_results":   strconv.FormatBool(v.HasSemanticResults),
	})
	if err != nil {
		return "", err
	}

	// Wrap via the Eino prompt component using a messages placeholder to
	// emit callbacks without re-formatting the JSON braces in the body.
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("classify prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("classify prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}

// RenderGenerateQuery renders the NL-to-SQL analysis prompt.
func RenderGenerateQuery(productNames []string, query string) (string, error) {
	return render(TemplateGenerateQuery, map[string]string{
		"product_names": strings.Join(productNames, "; "),
		"query":         query,
	})
}

// RenderFormatResults renders the conversational narration prompt for
// result shapes the deterministic formatter does not handle.
func RenderFormatResults(intro, query string, intents []string, resultsJSON string) (string, error) {
	return render(TemplateFormatResults, map[string]string{
		"intro":   intro,
		"query":   query,
		"intent":  strings.Join(intents, ", "),
		"results": resultsJSON,
	})
}

// RenderSemanticAnswer renders the semantic-only synthesis prompt.
func RenderSemanticAnswer(contextInfo, query, semanticContext string) (string, error) {
	return render(TemplateSemantic, map[string]string{
		"context_info": contextInfo,
		"query":        query,
		"context":      semanticContext,
	})
}

// RenderCombineAnswer renders the synthesis prompt that merges structured
// and semantic results.
func RenderCombineAnswer(contextInfo, query, structured, semantic string) (string, error) {
	return render(TemplateCombine, map[string]string{
		"context_info": contextInfo,
		"query":        query,
		"structured":   structured,
		"semantic":     semantic,
	})
}

// RenderRestate renders the follow-up restatement prompt. Count-style
// questions collapse to a single sentence; everything else is reformatted
// for chat viewing.
func RenderRestate(contextInfo, query, rawAnswer string, countStyle bool) (string, error) {
	name := TemplateRestateRich
	if countStyle {
		name = TemplateRestateCount
	}
	return render(name, map[string]string{
		"context_info": contextInfo,
		"query":        query,
		"raw_answer":   rawAnswer,
	})
}

// RenderNonProduct renders the general conversation prompt.
func RenderNonProduct(query string) (string, error) {
	return render(TemplateNonProduct, map[string]string{
		"query": query,
	})
}
