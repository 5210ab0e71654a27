package orchestratornode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	selectorx "github.com/pitchside/pitchside-agent/agent/selector"
)

func SelectTools(in *GraphState, sel *selectorx.Selector) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Selected = sel.Select(in.Intent, in.Profile)
	if len(in.Selected) == 0 {
		in.Outcome = contractx.OutcomeNoCapability
		log.Debug().Str("query_id", in.Query.ID).Msg("no tool cleared the score floor")
		return in, nil
	}

	ids := make([]string, 0, len(in.Selected))
	for _, ranked := range in.Selected {
		ids = append(ids, ranked.Descriptor.ID)
	}
	log.Debug().Str("query_id", in.Query.ID).Strs("tools", ids).Msg("tools selected")
	return in, nil
}
