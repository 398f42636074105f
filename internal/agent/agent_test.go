package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog-agent/server/internal/agent/graph"
	"github.com/catalog-agent/server/internal/agent/model"
)

type fakeRunner struct {
	result graph.Result
	err    error
	inputs []model.QueryInput
}

func (f *fakeRunner) Invoke(ctx context.Context, in model.QueryInput) (graph.Result, error) {
	f.inputs = append(f.inputs, in)
	return f.result, f.err
}

func TestAskAppendsTaggedTurns(t *testing.T) {
	runner := &fakeRunner{result: graph.Result{
		Answer:   "The price of Ginger Snap is $4.49.",
		TurnType: model.TurnTypeProduct,
	}}
	a := New(runner)

	answer, turns, err := a.Ask(context.Background(), "c1", "how much is ginger snap", nil)
	require.NoError(t, err)

	assert.Equal(t, "The price of Ginger Snap is $4.49.", answer)
	require.Len(t, turns, 2)
	assert.Equal(t, model.ConversationTurn{Role: model.RoleUser, Content: "how much is ginger snap"}, turns[0])
	assert.Equal(t, model.ConversationTurn{
		Role:    model.RoleAssistant,
		Content: "The price of Ginger Snap is $4.49.",
		Type:    model.TurnTypeProduct,
	}, turns[1])
}

func TestAskRecoversFollowupContext(t *testing.T) {
	runner := &fakeRunner{result: graph.Result{Answer: "Yes.", TurnType: model.TurnTypeProduct}}
	a := New(runner)

	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "tell me about lemon bar mix"},
		{Role: model.RoleAssistant, Content: "Lemon Bar Mix costs $12.95.", Type: model.TurnTypeProduct},
		{Role: model.RoleUser, Content: "thanks"},
		{Role: model.RoleAssistant, Content: "You're welcome!", Type: model.TurnTypeNonProduct},
	}

	_, _, err := a.Ask(context.Background(), "c1", "is it gluten-free", history)
	require.NoError(t, err)

	require.Len(t, runner.inputs, 1)
	assert.Equal(t, "tell me about lemon bar mix", runner.inputs[0].LastProductQuery)
	assert.Equal(t, "Lemon Bar Mix costs $12.95.", runner.inputs[0].LastProductAnswer)
}

func TestAskDoesNotMutateInputHistory(t *testing.T) {
	runner := &fakeRunner{result: graph.Result{Answer: "ok", TurnType: model.TurnTypeNonProduct}}
	a := New(runner)

	history := make([]model.ConversationTurn, 0, 8)
	history = append(history, model.ConversationTurn{Role: model.RoleUser, Content: "hello"})

	_, updated, err := a.Ask(context.Background(), "c1", "hi again", history)
	require.NoError(t, err)

	assert.Len(t, history, 1)
	assert.Len(t, updated, 3)
}

func TestAskDefaultsEmptyTurnTag(t *testing.T) {
	runner := &fakeRunner{result: graph.Result{Answer: "ok"}}
	a := New(runner)

	_, updated, err := a.Ask(context.Background(), "c1", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, model.TurnTypeNonProduct, updated[1].Type)
}

func TestAskPropagatesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("model unavailable")}
	a := New(runner)

	_, turns, err := a.Ask(context.Background(), "c1", "hello", nil)
	assert.Error(t, err)
	assert.Empty(t, turns)
}
