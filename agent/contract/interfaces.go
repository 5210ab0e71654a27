package contract

import (
	"context"
	"encoding/json"
)

// Extractor is the text-understanding collaborator. It must surface
// malformed model output as an error, never as garbage JSON.
type Extractor interface {
	Extract(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Generator is the text-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Tool is one registered capability. Implementations wrap a single
// external data source and own their request/response mapping.
type Tool interface {
	Invoke(ctx context.Context, params map[string]any) (any, error)
}

// ToolFunc adapts a plain function to the Tool interface.
type ToolFunc func(ctx context.Context, params map[string]any) (any, error)

func (f ToolFunc) Invoke(ctx context.Context, params map[string]any) (any, error) {
	return f(ctx, params)
}

// ProfileStore is the key-value persistence layer behind the memory
// store. Load returns ErrProfileNotFound for unknown users.
type ProfileStore interface {
	Load(ctx context.Context, userID string) (*UserProfile, error)
	Save(ctx context.Context, profile *UserProfile) error
}

// TurnArchive retains full conversation history beyond the active
// context window. Optional; a nil archive disables retention.
type TurnArchive interface {
	Archive(ctx context.Context, turn ConversationTurn) error
}
