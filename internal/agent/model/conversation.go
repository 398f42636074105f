package model

import (
	"context"
)

// TurnRepository persists caller-side conversation history. The agent core
// never writes through it; the chat frontend uses it to keep history across
// sessions.
type TurnRepository interface {
	// AppendTurns appends turns to the conversation history.
	AppendTurns(ctx context.Context, conversationID string, turns ...ConversationTurn) error

	// LoadTurns retrieves the full conversation history.
	LoadTurns(ctx context.Context, conversationID string) ([]ConversationTurn, error)

	// ClearTurns removes all history for a conversation.
	ClearTurns(ctx context.Context, conversationID string) error

	// CountTurns returns the number of turns in the conversation.
	CountTurns(ctx context.Context, conversationID string) (int, error)
}

// Completer is the minimal text-completion capability consumed by the
// engine, retriever and synthesizer. Implementations wrap a chat model;
// tests inject fakes.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
