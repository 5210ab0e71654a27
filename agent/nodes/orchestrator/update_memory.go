package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	memoryx "github.com/pitchside/pitchside-agent/agent/memory"
)

const summaryLimit = 240

// UpdateMemory records the finished turn. It runs detached from the
// query deadline so a timed-out query still updates the profile, and a
// memory failure never fails the reply.
func UpdateMemory(ctx context.Context, in *GraphState, store *memoryx.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Outcome == contractx.OutcomeNoCapability {
		return in, nil
	}

	detached := context.WithoutCancel(ctx)

	toolIDs := make([]string, 0, len(in.Run.Results))
	for _, result := range in.Run.Results {
		toolIDs = append(toolIDs, result.Invocation.ToolID)
	}

	turn := contractx.ConversationTurn{
		Query:           in.Query,
		Intent:          in.Intent,
		SelectedTools:   toolIDs,
		ResponseSummary: truncate(in.Reply, summaryLimit),
		Timestamp:       in.Query.Timestamp,
	}
	if err := store.Append(detached, turn); err != nil {
		log.Warn().Err(err).Str("query_id", in.Query.ID).Msg("memory update skipped")
	}

	store.RecordSuggestions(in.Query.UserID, in.Suggestions)
	return in, nil
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
