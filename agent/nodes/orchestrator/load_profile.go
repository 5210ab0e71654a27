package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	memoryx "github.com/pitchside/pitchside-agent/agent/memory"
)

func LoadProfile(ctx context.Context, in *GraphState, store *memoryx.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Profile = store.Profile(ctx, in.Query.UserID)
	in.RecentTurns = store.RecentTurns(in.Query.UserID, 0)
	in.RecentSuggestions = store.RecentSuggestions(in.Query.UserID)
	return in, nil
}
