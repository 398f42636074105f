package synthesizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestSynthesizeStructuredOnlyPassesThrough(t *testing.T) {
	fc := &fakeCompleter{reply: "should not be used"}
	s := New(fc)

	got := s.Synthesize(context.Background(), Input{
		Query:             "what is the price of lemon bar mix",
		StructuredResults: "The price of Lemon Bar Mix is $12.95.",
	})

	assert.Equal(t, "The price of Lemon Bar Mix is $12.95.", got)
	assert.Empty(t, fc.prompts, "pass-through must not call the model")
}

func TestSynthesizeStructuredFollowupRestates(t *testing.T) {
	fc := &fakeCompleter{reply: "Yes, the Lemon Bar Mix is $12.95."}
	s := New(fc)

	got := s.Synthesize(context.Background(), Input{
		Query:             "how much is it",
		StructuredResults: "The price of Lemon Bar Mix is $12.95.",
		IsFollowup:        true,
		LastProductQuery:  "tell me about lemon bar mix",
		LastProductAnswer: "Lemon Bar Mix is a baking mix.",
	})

	assert.Equal(t, "Yes, the Lemon Bar Mix is $12.95.", got)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "Previous question: tell me about lemon bar mix")
	assert.Contains(t, fc.prompts[0], "The price of Lemon Bar Mix is $12.95.")
}

func TestSynthesizeSemanticOnly(t *testing.T) {
	fc := &fakeCompleter{reply: "Store hours are 9am to 5pm."}
	s := New(fc)

	got := s.Synthesize(context.Background(), Input{
		Query:           "when are you open",
		SemanticResults: "Product: Store Info\nOpen 9-5 daily.",
	})

	assert.Equal(t, "Store hours are 9am to 5pm.", got)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "Open 9-5 daily.")
}

func TestSynthesizeCombinesBothSources(t *testing.T) {
	fc := &fakeCompleter{reply: "Ginger Snap costs $4.49 and contains ginger."}
	s := New(fc)

	got := s.Synthesize(context.Background(), Input{
		Query:             "tell me about ginger snap",
		StructuredResults: "The price of Ginger Snap is $4.49.",
		SemanticResults:   "Product: Ginger Snap\nA crisp cookie with real ginger.",
	})

	assert.Equal(t, "Ginger Snap costs $4.49 and contains ginger.", got)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "The price of Ginger Snap is $4.49.")
	assert.Contains(t, fc.prompts[0], "A crisp cookie with real ginger.")
}

func TestSynthesizeNothingFound(t *testing.T) {
	fc := &fakeCompleter{reply: "unused"}
	s := New(fc)

	got := s.Synthesize(context.Background(), Input{Query: "anything"})
	assert.Equal(t, NoInformationMessage, got)
	assert.Empty(t, fc.prompts)
}

func TestSynthesizeCleansGeneratedAnswer(t *testing.T) {
	fc := &fakeCompleter{reply: "It costs $4.49. Please verify with the store. Enjoy!"}
	s := New(fc)

	got := s.Synthesize(context.Background(), Input{
		Query:           "how much is ginger snap",
		SemanticResults: "Product: Ginger Snap\nchunk",
	})

	assert.Equal(t, "It costs $4.49. Enjoy!", got)
}

func TestSynthesizeModelFailureFallsBack(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("quota exhausted")}
	s := New(fc)

	got := s.Synthesize(context.Background(), Input{
		Query:             "how much is it",
		StructuredResults: "The price is $4.49.",
		IsFollowup:        true,
		LastProductQuery:  "ginger snap",
	})
	assert.Equal(t, "The price is $4.49.", got)

	got = s.Synthesize(context.Background(), Input{
		Query:           "when are you open",
		SemanticResults: "some chunk",
	})
	assert.Equal(t, NoInformationMessage, got)
}

func TestNonProduct(t *testing.T) {
	fc := &fakeCompleter{reply: "Hello! How can I help you today?"}
	s := New(fc)

	got := s.NonProduct(context.Background(), "hi there")
	assert.Equal(t, "Hello! How can I help you today?", got)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "hi there")
}

func TestIsCountPhrase(t *testing.T) {
	assert.True(t, isCountPhrase("How many vegan products are there?"))
	assert.True(t, isCountPhrase("what is the total number of cookies"))
	assert.False(t, isCountPhrase("tell me about ginger snap"))
}
