package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	interpretx "github.com/pitchside/pitchside-agent/agent/interpret"
)

func InterpretIntent(ctx context.Context, in *GraphState, interpreter *interpretx.Interpreter) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Intent = interpreter.Interpret(ctx, in.Query, in.RecentTurns)

	log.Debug().
		Str("query_id", in.Query.ID).
		Str("category", string(in.Intent.Category)).
		Float64("confidence", in.Intent.Confidence).
		Msg("intent interpreted")
	return in, nil
}
