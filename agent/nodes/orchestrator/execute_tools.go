package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	fallbackx "github.com/pitchside/pitchside-agent/agent/fallback"
)

func ExecuteTools(ctx context.Context, in *GraphState, planner *fallbackx.Planner) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Outcome == contractx.OutcomeNoCapability {
		return in, nil
	}

	in.Run = planner.Run(ctx, in.Query, in.Intent.Entities, in.Invocations)
	in.Outcome = in.Run.Outcome

	log.Info().
		Str("query_id", in.Query.ID).
		Str("outcome", string(in.Outcome)).
		Int("successes", len(in.Run.Results)).
		Int("fallback_attempts", in.Run.Attempts).
		Msg("tool execution settled")
	return in, nil
}
