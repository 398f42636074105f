package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

func TestGetUnknownTemplate(t *testing.T) {
	_, err := Get("does_not_exist.txt")
	assert.Error(t, err)
}

func TestRenderClassifySubstitutesStatus(t *testing.T) {
	out, err := RenderClassify(context.Background(), ClassifyVars{
		Query:              "how much is ginger snap",
		ChatContext:        "Previous product question: cookies",
		IterationCount:     2,
		LastNode:           "structured_query",
		NeedsStructured:    true,
		StructuredComplete: true,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "how much is ginger snap")
	assert.Contains(t, out, "Previous product question: cookies")
	assert.Contains(t, out, "structured_query")
	assert.NotContains(t, out, "{query}")
	assert.NotContains(t, out, "{iteration_count}")
}

func TestRenderGenerateQueryListsProductNames(t *testing.T) {
	out, err := RenderGenerateQuery([]string{"Ginger Snap", "Lemon Bar Mix"}, "show me cookies")
	require.NoError(t, err)
	assert.Contains(t, out, "Ginger Snap; Lemon Bar Mix")
	assert.Contains(t, out, "show me cookies")
	assert.NotContains(t, out, "{product_names}")
}

func TestRenderRestatePicksTemplateByStyle(t *testing.T) {
	rich, err := RenderRestate("", "list gluten-free products", "raw", false)
	require.NoError(t, err)
	count, err := RenderRestate("", "how many gluten-free products", "raw", true)
	require.NoError(t, err)
	assert.NotEqual(t, rich, count)
	assert.Contains(t, count, "raw")
}

func TestRenderSemanticAnswerOverlappingTokens(t *testing.T) {
	// {context_info} and {context} share a prefix; the longer token must win.
	out, err := RenderSemanticAnswer("FOLLOWUP", "q", "CHUNKS")
	require.NoError(t, err)
	assert.Contains(t, out, "FOLLOWUP")
	assert.Contains(t, out, "CHUNKS")
	assert.NotContains(t, out, "CHUNKS_info}")
}

func TestRenderedTemplatesLeaveNoTokens(t *testing.T) {
	out, err := RenderCombineAnswer("ctx", "q", "structured", "semantic")
	require.NoError(t, err)
	for _, token := range []string{"{context_info}", "{query}", "{structured}", "{semantic}"} {
		assert.False(t, strings.Contains(out, token), "unreplaced token %s", token)
	}
}
