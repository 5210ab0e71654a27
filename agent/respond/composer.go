package respond

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

// Fixed copy for the outcomes that never reach the model.
const (
	noCapabilityText = "I can help with football questions, like match results, player stats, " +
		"comparisons, news, and predictions. Could you rephrase what you'd like to know?"
	ExhaustedText = "I couldn't reach the data I need to answer that right now. " +
		"Please try again in a moment."
)

// Token budgets by response complexity.
const (
	shortMaxTokens    = 220
	standardMaxTokens = 450
	detailedMaxTokens = 800
)

// Composer turns tool results into the user-facing reply. Terminal
// outcomes get fixed local copy; everything else goes through the
// generation model with a directive matched to the question's
// complexity and the user's engagement level.
type Composer struct {
	generator contractx.Generator
	template  string
}

func New(generator contractx.Generator, template string) *Composer {
	return &Composer{generator: generator, template: template}
}

// Compose renders the reply. A generation failure degrades to a local
// summary of the results; it never surfaces an error to the caller.
func (c *Composer) Compose(
	ctx context.Context,
	query contractx.Query,
	intent contractx.IntentResult,
	outcome contractx.Outcome,
	results []contractx.ToolResult,
	profile *contractx.UserProfile,
) string {
	switch outcome {
	case contractx.OutcomeNoCapability:
		return noCapabilityText
	case contractx.OutcomeExhausted:
		return ExhaustedText
	}

	successes := successful(results)
	if len(successes) == 0 {
		return ExhaustedText
	}

	prompt, maxTokens := c.buildPrompt(query, intent, outcome, successes, profile)
	reply, err := c.generator.Generate(ctx, prompt, maxTokens)
	if err != nil {
		log.Warn().Err(err).Str("query_id", query.ID).Msg("response generation failed, using local summary")
		reply = localSummary(successes)
	}

	reply = strings.TrimSpace(reply)
	if sources := sourceLine(successes); sources != "" {
		reply += "\n\n" + sources
	}
	return reply
}

func (c *Composer) buildPrompt(
	query contractx.Query,
	intent contractx.IntentResult,
	outcome contractx.Outcome,
	results []contractx.ToolResult,
	profile *contractx.UserProfile,
) (string, int) {
	length, maxTokens := lengthDirective(intent.Category, len(results))
	if outcome == contractx.OutcomePartial {
		length += " Acknowledge briefly that part of the answer is unavailable."
	}

	prompt := strings.ReplaceAll(c.template, "{{query}}", query.RawText)
	prompt = strings.ReplaceAll(prompt, "{{intent}}", string(intent.Category))
	prompt = strings.ReplaceAll(prompt, "{{length}}", length)
	prompt = strings.ReplaceAll(prompt, "{{personalization}}", personalization(profile))
	prompt = strings.ReplaceAll(prompt, "{{results}}", encodeResults(results))
	return prompt, maxTokens
}

func lengthDirective(category contractx.IntentCategory, resultCount int) (string, int) {
	switch {
	case category == contractx.IntentAnalysis || category == contractx.IntentComparison:
		return "Write a detailed answer with the key comparisons and reasoning spelled out.", detailedMaxTokens
	case resultCount > 1:
		return "Write a standard-length answer that weaves the sources together.", standardMaxTokens
	default:
		return "Keep the answer short and direct, a sentence or two.", shortMaxTokens
	}
}

func personalization(profile *contractx.UserProfile) string {
	if profile == nil {
		return "Use a neutral, friendly tone."
	}
	switch profile.Engagement {
	case contractx.EngagementSuperfan:
		return "The user follows football closely. Use proper terminology and skip basic explanations."
	case contractx.EngagementRegular:
		return "The user is a regular follower. A conversational tone with light detail works best."
	default:
		return "The user may be casual about football. Keep jargon out and explain context briefly."
	}
}

func encodeResults(results []contractx.ToolResult) string {
	items := make([]map[string]any, 0, len(results))
	for _, result := range results {
		items = append(items, map[string]any{
			"source": result.Invocation.ToolID,
			"data":   result.Payload,
		})
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

// localSummary is the degraded rendering when the model is down: it
// names what was retrieved without inventing prose around it.
func localSummary(results []contractx.ToolResult) string {
	topics := make([]string, 0, len(results))
	for _, result := range results {
		topics = append(topics, strings.ReplaceAll(topicOf(result.Invocation.ToolID), "_", " "))
	}
	sort.Strings(topics)
	return fmt.Sprintf("Here's what I found on %s. I couldn't write it up fully right now, "+
		"ask again for the details.", strings.Join(dedupe(topics), ", "))
}

func sourceLine(results []contractx.ToolResult) string {
	names := make([]string, 0, len(results))
	for _, result := range results {
		names = append(names, strings.ReplaceAll(topicOf(result.Invocation.ToolID), "_", " "))
	}
	names = dedupe(names)
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return "Sources: " + strings.Join(names, ", ")
}

func topicOf(toolID string) string {
	if i := strings.IndexByte(toolID, '.'); i >= 0 {
		return toolID[:i]
	}
	return toolID
}

func successful(results []contractx.ToolResult) []contractx.ToolResult {
	out := make([]contractx.ToolResult, 0, len(results))
	for _, result := range results {
		if result.OK() {
			out = append(out, result)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
