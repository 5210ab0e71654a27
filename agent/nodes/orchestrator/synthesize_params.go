package orchestratornode

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	paramsx "github.com/pitchside/pitchside-agent/agent/params"
)

// SynthesizeParams resolves each selected tool's input schema. A tool
// whose required parameters cannot be filled is dropped rather than
// invoked with placeholders; dropping every tool downgrades the query
// to no-capability.
func SynthesizeParams(ctx context.Context, in *GraphState, synth *paramsx.Synthesizer) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Outcome == contractx.OutcomeNoCapability {
		return in, nil
	}

	in.Invocations = make([]contractx.ToolInvocation, 0, len(in.Selected))
	for _, ranked := range in.Selected {
		params, err := synth.Synthesize(ctx, ranked.Descriptor, in.Intent.Entities, in.Query.RawText, paramsx.Options{})
		if err != nil {
			if missing, ok := contractx.AsMissingParameter(err); ok {
				log.Debug().
					Str("query_id", in.Query.ID).
					Str("tool", missing.Tool).
					Str("field", missing.Field).
					Msg("tool dropped, required parameter unresolved")
				continue
			}
			return nil, err
		}
		in.Invocations = append(in.Invocations, contractx.ToolInvocation{
			InvocationID: uuid.NewString(),
			ToolID:       ranked.Descriptor.ID,
			Parameters:   params,
			Attempt:      1,
		})
	}

	if len(in.Invocations) == 0 {
		in.Outcome = contractx.OutcomeNoCapability
	}
	return in, nil
}
