package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	executorx "github.com/pitchside/pitchside-agent/agent/executor"
	paramsx "github.com/pitchside/pitchside-agent/agent/params"
	registryx "github.com/pitchside/pitchside-agent/agent/registry"
)

func testQuery() contractx.Query {
	return contractx.Query{
		ID:        uuid.NewString(),
		RawText:   "how did Arsenal do recently",
		UserID:    "u1",
		Timestamp: time.Now().UTC(),
	}
}

func teamEntities() contractx.EntityBag {
	bag := contractx.EntityBag{}
	bag.Add(contractx.EntityTeam, "Arsenal")
	return bag
}

func teamDescriptor(id, category string) contractx.ToolDescriptor {
	return contractx.ToolDescriptor{
		ID:       id,
		Category: category,
		InputSchema: []contractx.ParameterSpec{
			{Name: "team", Type: contractx.ParamString, Required: true},
		},
		Reliability: 0.9,
		Freshness:   contractx.FreshnessDaily,
	}
}

func newPlanner(t *testing.T, reg *registryx.Registry) *Planner {
	t.Helper()
	exec := executorx.New(reg, executorx.Config{
		RealtimeTimeout: 50 * time.Millisecond,
		DefaultTimeout:  100 * time.Millisecond,
	})
	p := New(exec, reg, paramsx.New(nil), Config{MaxAttempts: 4, BackoffBase: time.Millisecond})
	p.sleep = func(context.Context, time.Duration) {}
	return p
}

func invocationFor(toolID string, params map[string]any) contractx.ToolInvocation {
	return contractx.ToolInvocation{
		InvocationID: uuid.NewString(),
		ToolID:       toolID,
		Parameters:   params,
		Attempt:      1,
	}
}

func TestRunAllOKResolves(t *testing.T) {
	t.Parallel()

	reg := registryx.New()
	if err := reg.Register(teamDescriptor("stats.form", "stats"), contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			return "W W D L W", nil
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p := newPlanner(t, reg)
	out := p.Run(context.Background(), testQuery(), teamEntities(),
		[]contractx.ToolInvocation{invocationFor("stats.form", map[string]any{"team": "Arsenal"})})

	if out.Phase != PhaseResolved || out.Outcome != contractx.OutcomeResolved {
		t.Fatalf("phase/outcome = %s/%s, want RESOLVED/resolved", out.Phase, out.Outcome)
	}
	if len(out.Results) != 1 || out.Attempts != 0 {
		t.Fatalf("results=%d attempts=%d, want 1/0", len(out.Results), out.Attempts)
	}
}

func TestRunRetriesTimeoutOnceThenExhausts(t *testing.T) {
	t.Parallel()

	// Scenario: a realtime tool that always times out. One retry, then
	// EXHAUSTED since no sibling succeeded.
	var calls atomic.Int32
	reg := registryx.New()
	desc := teamDescriptor("live.scores", "live")
	desc.Freshness = contractx.FreshnessRealtime
	if err := reg.Register(desc, contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			calls.Add(1)
			<-ctx.Done()
			return nil, ctx.Err()
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p := newPlanner(t, reg)
	out := p.Run(context.Background(), testQuery(), teamEntities(),
		[]contractx.ToolInvocation{invocationFor("live.scores", map[string]any{"team": "Arsenal"})})

	if got := calls.Load(); got != 2 {
		t.Fatalf("tool called %d times, want initial + 1 retry", got)
	}
	if out.Phase != PhaseExhausted || out.Outcome != contractx.OutcomeExhausted {
		t.Fatalf("phase/outcome = %s/%s, want EXHAUSTED/exhausted", out.Phase, out.Outcome)
	}
	if len(out.Ledger) != 2 {
		t.Fatalf("ledger has %d records, want 2", len(out.Ledger))
	}
	for _, rec := range out.Ledger {
		if rec.Cause != contractx.CauseTimeout {
			t.Fatalf("ledger cause = %s, want timeout", rec.Cause)
		}
	}
}

func TestRunDegradesWhenSiblingSucceeded(t *testing.T) {
	t.Parallel()

	reg := registryx.New()
	if err := reg.Register(teamDescriptor("stats.form", "stats"), contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			return "W W W", nil
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(teamDescriptor("news.team_news", "news"), contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			return nil, errors.New("upstream 503")
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p := newPlanner(t, reg)
	out := p.Run(context.Background(), testQuery(), teamEntities(), []contractx.ToolInvocation{
		invocationFor("stats.form", map[string]any{"team": "Arsenal"}),
		invocationFor("news.team_news", map[string]any{"team": "Arsenal"}),
	})

	if out.Phase != PhaseDegrading || out.Outcome != contractx.OutcomePartial {
		t.Fatalf("phase/outcome = %s/%s, want DEGRADING/partial", out.Phase, out.Outcome)
	}
	if len(out.Results) != 1 || out.Results[0].Invocation.ToolID != "stats.form" {
		t.Fatalf("results = %+v, want only stats.form", out.Results)
	}
}

func TestRunSubstitutesOnRateLimit(t *testing.T) {
	t.Parallel()

	reg := registryx.New()
	if err := reg.Register(teamDescriptor("news.primary", "news"), contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			return nil, fmt.Errorf("%w: 429", contractx.ErrRateLimited)
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(teamDescriptor("news.alternate", "news"), contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			return "headline", nil
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p := newPlanner(t, reg)
	out := p.Run(context.Background(), testQuery(), teamEntities(),
		[]contractx.ToolInvocation{invocationFor("news.primary", map[string]any{"team": "Arsenal"})})

	if out.Outcome != contractx.OutcomeResolved {
		t.Fatalf("outcome = %s, want resolved via substitute", out.Outcome)
	}
	if len(out.Ledger) != 1 || out.Ledger[0].Strategy != contractx.StrategySubstitute {
		t.Fatalf("ledger = %+v, want one substitute_tool record", out.Ledger)
	}
	if out.Results[0].Invocation.ToolID != "news.alternate" {
		t.Fatalf("resolved by %s, want news.alternate", out.Results[0].Invocation.ToolID)
	}
}

func TestRunBroadensOnNoData(t *testing.T) {
	t.Parallel()

	desc := contractx.ToolDescriptor{
		ID:       "match_data.results",
		Category: "match_data",
		InputSchema: []contractx.ParameterSpec{
			{Name: "team", Type: contractx.ParamString, Required: true},
			{Name: "date_range", Type: contractx.ParamDateRange, Required: true},
		},
		Reliability: 0.9,
		Freshness:   contractx.FreshnessDaily,
	}

	reg := registryx.New()
	if err := reg.Register(desc, contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			if params["date_range"] == "last_10" {
				return "3 wins in last 10", nil
			}
			return nil, nil // empty payload
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	bag := teamEntities()
	bag.Add(contractx.EntityDateRange, "last_5")

	p := newPlanner(t, reg)
	out := p.Run(context.Background(), testQuery(), bag, []contractx.ToolInvocation{
		invocationFor("match_data.results", map[string]any{"team": "Arsenal", "date_range": "last_5"}),
	})

	if out.Outcome != contractx.OutcomeResolved {
		t.Fatalf("outcome = %s, want resolved after broadening", out.Outcome)
	}
	if out.Ledger[0].Strategy != contractx.StrategyBroaden {
		t.Fatalf("strategy = %s, want broaden_params", out.Ledger[0].Strategy)
	}
	if out.Results[0].Invocation.Parameters["date_range"] != "last_10" {
		t.Fatalf("broadened params = %v", out.Results[0].Invocation.Parameters)
	}
}

func TestRunNeverRepeatsToolCausePair(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	reg := registryx.New()
	if err := reg.Register(teamDescriptor("stats.flaky", "stats"), contractx.ToolFunc(
		func(ctx context.Context, params map[string]any) (any, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p := newPlanner(t, reg)
	out := p.Run(context.Background(), testQuery(), teamEntities(),
		[]contractx.ToolInvocation{invocationFor("stats.flaky", map[string]any{"team": "Arsenal"})})

	// api_error is retried exactly once despite persisting.
	if got := calls.Load(); got != 2 {
		t.Fatalf("tool called %d times, want 2", got)
	}
	if out.Attempts > 4 {
		t.Fatalf("attempts = %d, exceeds cap", out.Attempts)
	}
	if out.Outcome != contractx.OutcomeExhausted {
		t.Fatalf("outcome = %s, want exhausted", out.Outcome)
	}
}

func TestRunAttemptCapBoundsFailureStorm(t *testing.T) {
	t.Parallel()

	reg := registryx.New()
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("stats.t%d", i)
		if err := reg.Register(teamDescriptor(id, "stats"), contractx.ToolFunc(
			func(ctx context.Context, params map[string]any) (any, error) {
				return nil, errors.New("upstream 500")
			})); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	invocations := make([]contractx.ToolInvocation, 0, 6)
	for i := 0; i < 6; i++ {
		invocations = append(invocations,
			invocationFor(fmt.Sprintf("stats.t%d", i), map[string]any{"team": "Arsenal"}))
	}

	p := newPlanner(t, reg)
	out := p.Run(context.Background(), testQuery(), teamEntities(), invocations)
	if out.Attempts > 4 {
		t.Fatalf("attempts = %d, cap is 4", out.Attempts)
	}
	if out.Outcome != contractx.OutcomeExhausted {
		t.Fatalf("outcome = %s, want exhausted", out.Outcome)
	}
}

func TestClassifyRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		result contractx.ToolResult
		want   contractx.FailureCause
	}{
		{"timeout status", contractx.ToolResult{Status: contractx.StatusTimeout}, contractx.CauseTimeout},
		{"empty payload", contractx.ToolResult{Status: contractx.StatusEmpty}, contractx.CauseNoData},
		{"rate limit marker", contractx.ToolResult{Status: contractx.StatusError, ErrorDetail: "rate limited by upstream: 429"}, contractx.CauseRateLimited},
		{"schema marker", contractx.ToolResult{Status: contractx.StatusError, ErrorDetail: "parameters rejected by tool"}, contractx.CauseBadParams},
		{"connection error", contractx.ToolResult{Status: contractx.StatusError, ErrorDetail: "dial tcp: connection refused"}, contractx.CauseAPIError},
		{"server error", contractx.ToolResult{Status: contractx.StatusError, ErrorDetail: "upstream returned 503"}, contractx.CauseAPIError},
	}

	for _, tc := range cases {
		if got := Classify(tc.result); got != tc.want {
			t.Fatalf("%s: Classify() = %s, want %s", tc.name, got, tc.want)
		}
	}
}
