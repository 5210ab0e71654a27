package orchestratornode

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	fallbackx "github.com/pitchside/pitchside-agent/agent/fallback"
	selectorx "github.com/pitchside/pitchside-agent/agent/selector"
)

var (
	ErrInvalidQuery = errors.New("query text is empty")
	ErrInvalidUser  = errors.New("user id is empty")
)

type GraphInput struct {
	UserID string
	Text   string
}

type GraphOutput struct {
	QueryID     string
	Reply       string
	Suggestions []contractx.Suggestion
	Outcome     contractx.Outcome
}

// GraphState accumulates one query's pipeline data as it moves through
// the nodes.
type GraphState struct {
	Query contractx.Query

	Profile           *contractx.UserProfile
	RecentTurns       []contractx.ConversationTurn
	RecentSuggestions []string

	Intent      contractx.IntentResult
	Selected    []selectorx.Ranked
	Invocations []contractx.ToolInvocation

	Run     fallbackx.RunResult
	Outcome contractx.Outcome

	Suggestions []contractx.Suggestion
	Reply       string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidQuery
	}

	return &GraphState{
		Query: contractx.Query{
			ID:        uuid.NewString(),
			RawText:   text,
			UserID:    userID,
			Timestamp: nowFn().UTC(),
		},
	}, nil
}
