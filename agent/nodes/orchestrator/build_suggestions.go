package orchestratornode

import (
	"fmt"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	memoryx "github.com/pitchside/pitchside-agent/agent/memory"
	suggestx "github.com/pitchside/pitchside-agent/agent/suggest"
)

func BuildSuggestions(in *GraphState, suggester *suggestx.Suggester, store *memoryx.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Outcome == contractx.OutcomeNoCapability || in.Outcome == contractx.OutcomeExhausted {
		return in, nil
	}

	in.Suggestions = suggester.Build(in.Intent, in.Run.Results, in.Profile, in.RecentSuggestions, store.Mentions)
	return in, nil
}
