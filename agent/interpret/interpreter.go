package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

type Config struct {
	ContextTurns int `envconfig:"CONTEXT_TURNS" split_words:"true" default:"10"`
}

// Interpreter turns a raw user query into a classified intent with
// extracted entities, using the recent conversation to resolve
// follow-up references. A model failure never fails the query; the
// interpreter degrades to keyword matching at reduced confidence.
type Interpreter struct {
	extractor contractx.Extractor
	template  string
	cfg       Config
}

func New(extractor contractx.Extractor, template string, cfg Config) *Interpreter {
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 10
	}
	return &Interpreter{extractor: extractor, template: template, cfg: cfg}
}

// rawIntent is the wire shape the model must produce.
type rawIntent struct {
	Category   string              `json:"category"`
	Confidence float64             `json:"confidence"`
	Entities   map[string][]string `json:"entities"`
}

func (i *Interpreter) Interpret(ctx context.Context, query contractx.Query, recent []contractx.ConversationTurn) contractx.IntentResult {
	prompt := i.buildPrompt(query, recent)

	raw, err := i.extractor.Extract(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("query_id", query.ID).Msg("intent extraction failed, using keyword fallback")
		return keywordFallback(query.RawText)
	}

	result, err := parseIntent(raw)
	if err != nil {
		log.Warn().Err(err).Str("query_id", query.ID).Msg("intent payload rejected, using keyword fallback")
		return keywordFallback(query.RawText)
	}
	return result
}

func (i *Interpreter) buildPrompt(query contractx.Query, recent []contractx.ConversationTurn) string {
	if len(recent) > i.cfg.ContextTurns {
		recent = recent[len(recent)-i.cfg.ContextTurns:]
	}

	var b strings.Builder
	if len(recent) == 0 {
		b.WriteString("(no prior turns)")
	}
	for _, turn := range recent {
		fmt.Fprintf(&b, "user: %s\n", turn.Query.RawText)
		if turn.ResponseSummary != "" {
			fmt.Fprintf(&b, "assistant: %s\n", turn.ResponseSummary)
		}
	}

	prompt := strings.ReplaceAll(i.template, "{{context}}", strings.TrimSpace(b.String()))
	return strings.ReplaceAll(prompt, "{{query}}", query.RawText)
}

// parseIntent validates the model payload strictly: the category must
// be one the pipeline knows, confidence must land in [0,1], and every
// entity key must be a recognized kind. Anything else is rejected
// wholesale so a malformed payload cannot half-populate the result.
func parseIntent(raw json.RawMessage) (contractx.IntentResult, error) {
	var parsed rawIntent
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&parsed); err != nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}

	category := contractx.IntentCategory(parsed.Category)
	if category != contractx.IntentUnknown && !contractx.KnownIntent(category) {
		return contractx.IntentResult{}, fmt.Errorf("%w: category %q", contractx.ErrSchemaViolation, parsed.Category)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return contractx.IntentResult{}, fmt.Errorf("%w: confidence %v out of range", contractx.ErrSchemaViolation, parsed.Confidence)
	}

	entities := contractx.EntityBag{}
	for key, values := range parsed.Entities {
		kind := contractx.EntityKind(key)
		if !knownKind(kind) {
			return contractx.IntentResult{}, fmt.Errorf("%w: entity kind %q", contractx.ErrSchemaViolation, key)
		}
		for _, value := range values {
			entities.Add(kind, value)
		}
	}

	return contractx.IntentResult{
		Category:   category,
		Confidence: parsed.Confidence,
		Entities:   entities,
	}, nil
}

func knownKind(kind contractx.EntityKind) bool {
	for _, known := range contractx.EntityKinds {
		if kind == known {
			return true
		}
	}
	return false
}

// Keyword buckets for the degraded path. Matching is substring-based on
// the lowercased query; the first bucket with a hit wins.
var keywordBuckets = []struct {
	category contractx.IntentCategory
	words    []string
}{
	{contractx.IntentComparison, []string{" vs ", " versus ", "compare", "better than", " or "}},
	{contractx.IntentPrediction, []string{"predict", "will win", "who wins", "odds", "chances"}},
	{contractx.IntentNews, []string{"news", "transfer", "injury", "injured", "rumour", "rumor", "signing"}},
	{contractx.IntentStats, []string{"stats", "statistics", "goals", "assists", "xg", "clean sheet", "how many"}},
	{contractx.IntentAnalysis, []string{"why", "analysis", "analyse", "analyze", "tactic", "formation", "explain"}},
	{contractx.IntentMatchResult, []string{"score", "result", "won", "lost", "drew", "final", "fixture"}},
}

var dateRangePattern = regexp.MustCompile(`last[ _](\d+)`)

// Below the selector's confidence threshold, so a salvaged intent still
// gets the broad exploratory tool set.
const fallbackConfidence = 0.25

// keywordFallback is the salvage path when the model is unavailable or
// its output is unusable. It only attempts category detection plus a
// date-range grab; named entities stay empty rather than guessed.
func keywordFallback(rawText string) contractx.IntentResult {
	lowered := " " + strings.ToLower(rawText) + " "

	result := contractx.IntentResult{
		Category: contractx.IntentUnknown,
		Entities: contractx.EntityBag{},
	}
	for _, bucket := range keywordBuckets {
		for _, word := range bucket.words {
			if strings.Contains(lowered, word) {
				result.Category = bucket.category
				result.Confidence = fallbackConfidence
				break
			}
		}
		if result.Category != contractx.IntentUnknown {
			break
		}
	}

	if m := dateRangePattern.FindStringSubmatch(lowered); m != nil {
		result.Entities.Add(contractx.EntityDateRange, "last_"+m[1])
	}
	return result
}
