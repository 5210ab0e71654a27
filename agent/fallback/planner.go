package fallback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	executorx "github.com/pitchside/pitchside-agent/agent/executor"
	paramsx "github.com/pitchside/pitchside-agent/agent/params"
	registryx "github.com/pitchside/pitchside-agent/agent/registry"
)

type Config struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"4"`
	BackoffBase time.Duration `envconfig:"BACKOFF_BASE" split_words:"true" default:"200ms"`
}

// Phase is the planner's position in its per-query state machine.
type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhaseExecuting   Phase = "EXECUTING"
	PhaseClassifying Phase = "CLASSIFYING"
	PhasePlanning    Phase = "PLANNING"
	PhaseDegrading   Phase = "DEGRADING"
	PhaseResolved    Phase = "RESOLVED"
	PhaseExhausted   Phase = "EXHAUSTED"
)

// RunResult is the terminal outcome of one planned execution.
type RunResult struct {
	Phase    Phase
	Outcome  contractx.Outcome
	Results  []contractx.ToolResult  // successful results only
	Ledger   []contractx.FailureRecord
	Attempts int // fallback invocations issued beyond the initial wave
}

// Planner drives tool execution through failure classification and
// bounded fallback. All of its state is query-local.
type Planner struct {
	executor *executorx.Coordinator
	registry *registryx.Registry
	synth    *paramsx.Synthesizer
	cfg      Config

	sleep func(context.Context, time.Duration)
}

func New(executor *executorx.Coordinator, registry *registryx.Registry, synth *paramsx.Synthesizer, cfg Config) *Planner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	return &Planner{
		executor: executor,
		registry: registry,
		synth:    synth,
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// run-local bookkeeping; never shared across queries.
type runState struct {
	query    contractx.Query
	entities contractx.EntityBag

	successes []contractx.ToolResult
	ledger    []contractx.FailureRecord
	attempts  int

	// tried marks (tool, cause) pairs so no strategy repeats.
	tried map[string]map[contractx.FailureCause]bool
	// inPlan marks tools that already ran or are queued, so a
	// substitute never reuses them.
	inPlan map[string]bool
}

func (st *runState) markTried(toolID string, cause contractx.FailureCause) bool {
	if st.tried[toolID] == nil {
		st.tried[toolID] = make(map[contractx.FailureCause]bool, 4)
	}
	if st.tried[toolID][cause] {
		return false
	}
	st.tried[toolID][cause] = true
	return true
}

// Run executes the invocations and applies the fallback state machine
// until every tool settled, the attempt budget is spent, or nothing is
// left to try.
func (p *Planner) Run(
	ctx context.Context,
	query contractx.Query,
	entities contractx.EntityBag,
	initial []contractx.ToolInvocation,
) RunResult {
	st := &runState{
		query:    query,
		entities: entities,
		tried:    make(map[string]map[contractx.FailureCause]bool, 4),
		inPlan:   make(map[string]bool, 4),
	}
	for _, inv := range initial {
		st.inPlan[inv.ToolID] = true
	}

	wave := initial

	for len(wave) > 0 {
		results := p.executor.Execute(ctx, wave)

		var failed []contractx.ToolResult
		for _, r := range results {
			if r.OK() {
				st.successes = append(st.successes, r)
			} else {
				failed = append(failed, r)
			}
		}

		if len(failed) == 0 {
			return finish(PhaseResolved, contractx.OutcomeResolved, st)
		}

		var next []contractx.ToolInvocation
		var wantBackoff bool
		for _, f := range failed {
			cause := Classify(f)
			inv, backoff, ok := p.plan(ctx, st, f, cause, len(next))
			record := contractx.FailureRecord{
				Invocation: f.Invocation,
				Cause:      cause,
				Strategy:   contractx.StrategyDegrade,
			}
			if ok {
				record.Strategy = strategyFor(cause, inv, f.Invocation)
				next = append(next, inv)
				wantBackoff = wantBackoff || backoff
			}
			st.ledger = append(st.ledger, record)

			log.Debug().
				Str("query_id", st.query.ID).
				Str("tool", f.Invocation.ToolID).
				Str("cause", string(cause)).
				Str("strategy", string(record.Strategy)).
				Msg("tool failure classified")
		}

		if len(next) == 0 {
			break
		}

		if wantBackoff {
			p.sleep(ctx, p.backoff(st.attempts))
		}
		st.attempts += len(next)
		wave = next

		if ctx.Err() != nil {
			break
		}
	}

	if len(st.successes) > 0 {
		return finish(PhaseDegrading, contractx.OutcomePartial, st)
	}
	return finish(PhaseExhausted, contractx.OutcomeExhausted, st)
}

func finish(phase Phase, outcome contractx.Outcome, st *runState) RunResult {
	return RunResult{
		Phase:    phase,
		Outcome:  outcome,
		Results:  st.successes,
		Ledger:   st.ledger,
		Attempts: st.attempts,
	}
}

// plan picks the strategy for one classified failure and materializes it
// as a fresh invocation. Returns ok=false when the budget is spent, the
// (tool, cause) pair was already tried, or the strategy cannot produce a
// viable invocation.
func (p *Planner) plan(
	ctx context.Context,
	st *runState,
	failed contractx.ToolResult,
	cause contractx.FailureCause,
	queued int,
) (contractx.ToolInvocation, bool, bool) {
	if st.attempts+queued >= p.cfg.MaxAttempts {
		return contractx.ToolInvocation{}, false, false
	}
	toolID := failed.Invocation.ToolID
	if !st.markTried(toolID, cause) {
		return contractx.ToolInvocation{}, false, false
	}

	switch cause {
	case contractx.CauseAPIError, contractx.CauseTimeout:
		return retry(failed.Invocation), true, true

	case contractx.CauseRateLimited:
		if inv, ok := p.substitute(ctx, st, toolID); ok {
			return inv, false, true
		}
		// No alternate in category: defer and retry once after backoff.
		return retry(failed.Invocation), true, true

	case contractx.CauseNoData:
		if inv, ok := p.resynthesize(ctx, st, toolID, failed.Invocation, paramsx.Options{Broadened: true}); ok {
			return inv, false, true
		}
		if inv, ok := p.substitute(ctx, st, toolID); ok {
			return inv, false, true
		}
		return contractx.ToolInvocation{}, false, false

	case contractx.CauseBadParams:
		if inv, ok := p.resynthesize(ctx, st, toolID, failed.Invocation, paramsx.Options{Relaxed: true}); ok {
			return inv, false, true
		}
		return contractx.ToolInvocation{}, false, false
	}

	return contractx.ToolInvocation{}, false, false
}

func retry(prev contractx.ToolInvocation) contractx.ToolInvocation {
	return contractx.ToolInvocation{
		InvocationID: uuid.NewString(),
		ToolID:       prev.ToolID,
		Parameters:   prev.Parameters,
		Attempt:      prev.Attempt + 1,
	}
}

// substitute picks the first unused alternate tool in the same category
// and synthesizes parameters for it.
func (p *Planner) substitute(ctx context.Context, st *runState, toolID string) (contractx.ToolInvocation, bool) {
	for _, alt := range p.registry.Alternates(toolID) {
		if st.inPlan[alt] {
			continue
		}
		entry, err := p.registry.Get(alt)
		if err != nil {
			continue
		}
		params, err := p.synth.Synthesize(ctx, entry.Descriptor, st.entities, st.query.RawText, paramsx.Options{})
		if err != nil {
			continue
		}
		st.inPlan[alt] = true
		return contractx.ToolInvocation{
			InvocationID: uuid.NewString(),
			ToolID:       alt,
			Parameters:   params,
			Attempt:      1,
		}, true
	}
	return contractx.ToolInvocation{}, false
}

// resynthesize reruns the parameter synthesizer for the same tool with
// relaxed or broadened mapping.
func (p *Planner) resynthesize(
	ctx context.Context,
	st *runState,
	toolID string,
	prev contractx.ToolInvocation,
	opts paramsx.Options,
) (contractx.ToolInvocation, bool) {
	entry, err := p.registry.Get(toolID)
	if err != nil {
		return contractx.ToolInvocation{}, false
	}
	params, err := p.synth.Synthesize(ctx, entry.Descriptor, st.entities, st.query.RawText, opts)
	if err != nil {
		return contractx.ToolInvocation{}, false
	}
	if opts.Broadened && equalParams(params, prev.Parameters) {
		// Nothing actually widened; a rerun would just fail again.
		return contractx.ToolInvocation{}, false
	}
	return contractx.ToolInvocation{
		InvocationID: uuid.NewString(),
		ToolID:       toolID,
		Parameters:   params,
		Attempt:      prev.Attempt + 1,
	}, true
}

func strategyFor(cause contractx.FailureCause, next contractx.ToolInvocation, prev contractx.ToolInvocation) contractx.FallbackStrategy {
	if next.ToolID != prev.ToolID {
		return contractx.StrategySubstitute
	}
	switch cause {
	case contractx.CauseNoData:
		return contractx.StrategyBroaden
	case contractx.CauseBadParams:
		return contractx.StrategyRelax
	default:
		return contractx.StrategyRetry
	}
}

func (p *Planner) backoff(attempts int) time.Duration {
	d := p.cfg.BackoffBase
	for i := 0; i < attempts; i++ {
		d *= 2
	}
	return d
}

func equalParams(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
