package orchestratornode

import (
	"fmt"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	outcome := in.Outcome
	if outcome == "" {
		outcome = contractx.OutcomeResolved
	}
	return GraphOutput{
		QueryID:     in.Query.ID,
		Reply:       in.Reply,
		Suggestions: in.Suggestions,
		Outcome:     outcome,
	}, nil
}
