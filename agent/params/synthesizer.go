package params

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	selectorx "github.com/pitchside/pitchside-agent/agent/selector"
)

// Synthesizer maps extracted entities onto a tool's input schema. When a
// required field has no obvious entity it escalates once to the
// text-understanding collaborator before giving up.
type Synthesizer struct {
	extractor contractx.Extractor
}

func New(extractor contractx.Extractor) *Synthesizer {
	return &Synthesizer{extractor: extractor}
}

// Options tune one synthesis pass.
type Options struct {
	// Relaxed mapping accepts any remaining entity value for a required
	// field whose kind could not be matched. Used by the fallback planner
	// after a bad_params failure.
	Relaxed bool
	// Broadened drops optional filters and widens date ranges. Used by
	// the fallback planner after a no_data failure.
	Broadened bool
}

// Synthesize resolves the tool's schema against the entity bag. Required
// fields that stay unresolved produce a MissingParameterError; optional
// fields are simply omitted, never filled with placeholders.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	tool contractx.ToolDescriptor,
	entities contractx.EntityBag,
	rawText string,
	opts Options,
) (map[string]any, error) {
	out := make(map[string]any, len(tool.InputSchema))
	consumed := make(map[contractx.EntityKind]int, len(entities))

	for _, spec := range tool.InputSchema {
		if opts.Broadened && !spec.Required {
			continue
		}

		value, ok := takeEntity(entities, consumed, spec)
		if !ok && spec.Required && opts.Relaxed {
			value, ok = takeAny(entities, consumed)
		}
		if !ok && spec.Required {
			value, ok = s.infer(ctx, tool, spec, rawText)
		}
		if !ok {
			if spec.Required {
				return nil, &contractx.MissingParameterError{Tool: tool.ID, Field: spec.Name}
			}
			continue
		}

		if spec.Type == contractx.ParamDateRange && opts.Broadened {
			value = widenDateRange(value)
		}
		out[spec.Name] = value
	}

	return out, nil
}

// takeEntity pulls the next unconsumed value of the field's entity kind,
// so a schema with two team fields receives two distinct teams.
func takeEntity(
	entities contractx.EntityBag,
	consumed map[contractx.EntityKind]int,
	spec contractx.ParameterSpec,
) (string, bool) {
	kind := selectorx.KindForParam(spec.Name, spec.Type)
	values := entities[kind]
	idx := consumed[kind]
	if idx >= len(values) {
		return "", false
	}
	consumed[kind]++
	return values[idx], true
}

// takeAny consumes the first remaining value of any kind, in canonical
// kind order. Only reachable in relaxed mode.
func takeAny(entities contractx.EntityBag, consumed map[contractx.EntityKind]int) (string, bool) {
	for _, kind := range contractx.EntityKinds {
		values := entities[kind]
		if idx := consumed[kind]; idx < len(values) {
			consumed[kind]++
			return values[idx], true
		}
	}
	return "", false
}

type inferredParam struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// infer asks the collaborator to pull the field out of the raw query
// text. Collaborator failure or an empty answer is treated as unresolved,
// never as fatal.
func (s *Synthesizer) infer(
	ctx context.Context,
	tool contractx.ToolDescriptor,
	spec contractx.ParameterSpec,
	rawText string,
) (string, bool) {
	if s.extractor == nil || strings.TrimSpace(rawText) == "" {
		return "", false
	}

	prompt := fmt.Sprintf(
		"Extract the value for parameter %q (%s) of tool %q from this question.\n"+
			"Tool purpose: %s\nQuestion: %q\n"+
			`Reply with JSON only: {"value":"...","confidence":0.0}. `+
			"Use an empty value when the question does not contain one.",
		spec.Name, spec.Type, tool.ID, tool.Description, rawText,
	)

	raw, err := s.extractor.Extract(ctx, prompt)
	if err != nil {
		log.Debug().Err(err).Str("tool", tool.ID).Str("field", spec.Name).
			Msg("parameter inference failed")
		return "", false
	}

	var inferred inferredParam
	if err := json.Unmarshal(raw, &inferred); err != nil {
		return "", false
	}
	value := strings.TrimSpace(inferred.Value)
	if value == "" || inferred.Confidence < 0.5 {
		return "", false
	}
	return value, true
}

// widenDateRange stretches a resolved range for the broaden strategy. The
// format is the pipeline's own "last_N" convention; anything else passes
// through untouched.
func widenDateRange(value string) string {
	var n int
	if _, err := fmt.Sscanf(value, "last_%d", &n); err == nil && n > 0 {
		return fmt.Sprintf("last_%d", n*2)
	}
	return value
}
