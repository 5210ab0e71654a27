package respond

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

type fakeGenerator struct {
	reply     string
	err       error
	prompt    string
	maxTokens int
	calls     int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	f.prompt = prompt
	f.maxTokens = maxTokens
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

const composerTemplate = "Directive: {{length}}\nTone: {{personalization}}\n" +
	"Question: {{query}}\nIntent: {{intent}}\nResults: {{results}}"

func okResult(toolID string, payload any) contractx.ToolResult {
	return contractx.ToolResult{
		Invocation: contractx.ToolInvocation{InvocationID: "inv-1", ToolID: toolID},
		Status:     contractx.StatusOK,
		Payload:    payload,
	}
}

func statsQuery() contractx.Query {
	return contractx.Query{ID: "q1", RawText: "how is Saka doing", UserID: "u1"}
}

func statsIntent() contractx.IntentResult {
	return contractx.IntentResult{Category: contractx.IntentStats, Confidence: 0.9, Entities: contractx.EntityBag{}}
}

func TestComposeTerminalOutcomesSkipModel(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "should not be used"}
	composer := New(gen, composerTemplate)
	ctx := context.Background()

	noCap := composer.Compose(ctx, statsQuery(), statsIntent(), contractx.OutcomeNoCapability, nil, nil)
	if noCap != noCapabilityText {
		t.Fatalf("no-capability reply = %q", noCap)
	}

	exhausted := composer.Compose(ctx, statsQuery(), statsIntent(), contractx.OutcomeExhausted, nil, nil)
	if exhausted != ExhaustedText {
		t.Fatalf("exhausted reply = %q", exhausted)
	}

	if gen.calls != 0 {
		t.Fatalf("generator called %d times for terminal outcomes, want 0", gen.calls)
	}
}

func TestComposeIncludesResultsAndSources(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "Saka has 4 goals in his last 5 games."}
	composer := New(gen, composerTemplate)

	results := []contractx.ToolResult{
		okResult("stats.player_form", map[string]any{"goals": 4}),
	}
	reply := composer.Compose(context.Background(), statsQuery(), statsIntent(), contractx.OutcomeResolved, results, nil)

	if !strings.Contains(reply, "Saka has 4 goals") {
		t.Fatalf("reply missing model text: %q", reply)
	}
	if !strings.Contains(reply, "Sources: stats") {
		t.Fatalf("reply missing source line: %q", reply)
	}
	if !strings.Contains(gen.prompt, `"goals":4`) {
		t.Fatalf("prompt missing result payload:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "how is Saka doing") {
		t.Fatalf("prompt missing the query:\n%s", gen.prompt)
	}
}

func TestComposeLengthDirectiveByComplexity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		intent    contractx.IntentCategory
		results   int
		maxTokens int
	}{
		{"single lookup is short", contractx.IntentMatchResult, 1, shortMaxTokens},
		{"multi-source is standard", contractx.IntentNews, 2, standardMaxTokens},
		{"analysis is detailed", contractx.IntentAnalysis, 1, detailedMaxTokens},
		{"comparison is detailed", contractx.IntentComparison, 2, detailedMaxTokens},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen := &fakeGenerator{reply: "ok"}
			composer := New(gen, composerTemplate)

			intent := contractx.IntentResult{Category: tc.intent, Confidence: 0.9, Entities: contractx.EntityBag{}}
			results := make([]contractx.ToolResult, 0, tc.results)
			for i := 0; i < tc.results; i++ {
				results = append(results, okResult("stats.player_form", map[string]any{"i": i}))
			}

			composer.Compose(context.Background(), statsQuery(), intent, contractx.OutcomeResolved, results, nil)
			if gen.maxTokens != tc.maxTokens {
				t.Fatalf("max tokens = %d, want %d", gen.maxTokens, tc.maxTokens)
			}
		})
	}
}

func TestComposePersonalizationByEngagement(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "ok"}
	composer := New(gen, composerTemplate)
	results := []contractx.ToolResult{okResult("stats.player_form", map[string]any{"goals": 4})}

	superfan := contractx.NewUserProfile("u1")
	superfan.Engagement = contractx.EngagementSuperfan
	composer.Compose(context.Background(), statsQuery(), statsIntent(), contractx.OutcomeResolved, results, superfan)
	if !strings.Contains(gen.prompt, "follows football closely") {
		t.Fatalf("superfan prompt missing terminology hint:\n%s", gen.prompt)
	}

	casual := contractx.NewUserProfile("u2")
	composer.Compose(context.Background(), statsQuery(), statsIntent(), contractx.OutcomeResolved, results, casual)
	if !strings.Contains(gen.prompt, "Keep jargon out") {
		t.Fatalf("casual prompt missing plain-language hint:\n%s", gen.prompt)
	}
}

func TestComposePartialOutcomeAcknowledged(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "ok"}
	composer := New(gen, composerTemplate)

	results := []contractx.ToolResult{
		okResult("stats.player_form", map[string]any{"goals": 4}),
		{Invocation: contractx.ToolInvocation{ToolID: "news.headlines"}, Status: contractx.StatusError, ErrorDetail: "http 500"},
	}
	composer.Compose(context.Background(), statsQuery(), statsIntent(), contractx.OutcomePartial, results, nil)

	if !strings.Contains(gen.prompt, "part of the answer is unavailable") {
		t.Fatalf("partial prompt missing acknowledgement directive:\n%s", gen.prompt)
	}
	if strings.Contains(gen.prompt, "http 500") {
		t.Fatalf("failed result leaked into the prompt:\n%s", gen.prompt)
	}
}

func TestComposeDegradesOnGeneratorFailure(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New("model unavailable")}
	composer := New(gen, composerTemplate)

	results := []contractx.ToolResult{okResult("stats.player_form", map[string]any{"goals": 4})}
	reply := composer.Compose(context.Background(), statsQuery(), statsIntent(), contractx.OutcomeResolved, results, nil)

	if reply == "" {
		t.Fatal("expected a degraded local reply")
	}
	if strings.Contains(reply, "model unavailable") {
		t.Fatalf("technical error leaked to the user: %q", reply)
	}
	if !strings.Contains(reply, "stats") {
		t.Fatalf("degraded reply should name retrieved topics: %q", reply)
	}
}

func TestComposeNoSuccessesFallsBackToExhaustedCopy(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "should not run"}
	composer := New(gen, composerTemplate)

	failed := []contractx.ToolResult{
		{Invocation: contractx.ToolInvocation{ToolID: "news.headlines"}, Status: contractx.StatusTimeout},
	}
	reply := composer.Compose(context.Background(), statsQuery(), statsIntent(), contractx.OutcomeResolved, failed, nil)
	if reply != ExhaustedText {
		t.Fatalf("reply = %q, want exhausted copy", reply)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times with no successes, want 0", gen.calls)
	}
}
