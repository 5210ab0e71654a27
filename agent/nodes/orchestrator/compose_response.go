package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	respondx "github.com/pitchside/pitchside-agent/agent/respond"
)

func ComposeResponse(ctx context.Context, in *GraphState, composer *respondx.Composer) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Reply = composer.Compose(ctx, in.Query, in.Intent, in.Outcome, in.Run.Results, in.Profile)
	return in, nil
}
