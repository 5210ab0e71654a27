package contract

import (
	"strings"
	"time"
)

type IntentCategory string

const (
	IntentMatchResult IntentCategory = "match_result"
	IntentComparison  IntentCategory = "comparison"
	IntentPrediction  IntentCategory = "prediction"
	IntentNews        IntentCategory = "news"
	IntentStats       IntentCategory = "stats"
	IntentAnalysis    IntentCategory = "analysis"
	IntentUnknown     IntentCategory = "unknown"
)

// KnownIntent reports whether the category is one the pipeline understands.
func KnownIntent(c IntentCategory) bool {
	switch c {
	case IntentMatchResult, IntentComparison, IntentPrediction,
		IntentNews, IntentStats, IntentAnalysis:
		return true
	}
	return false
}

type EntityKind string

const (
	EntityTeam        EntityKind = "team"
	EntityPlayer      EntityKind = "player"
	EntityCompetition EntityKind = "competition"
	EntityDateRange   EntityKind = "date_range"
	EntityMetric      EntityKind = "metric"
)

// EntityKinds is the canonical iteration order for an EntityBag.
var EntityKinds = []EntityKind{
	EntityTeam, EntityPlayer, EntityCompetition, EntityDateRange, EntityMetric,
}

// EntityBag maps an entity kind to the values extracted for it, in
// extraction order, with duplicates and empty strings dropped.
type EntityBag map[EntityKind][]string

func (b EntityBag) Add(kind EntityKind, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	for _, existing := range b[kind] {
		if strings.EqualFold(existing, value) {
			return
		}
	}
	b[kind] = append(b[kind], value)
}

func (b EntityBag) First(kind EntityKind) (string, bool) {
	values := b[kind]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (b EntityBag) Values(kind EntityKind) []string {
	return append([]string(nil), b[kind]...)
}

// Query is a single user question. Immutable once created.
type Query struct {
	ID        string    `json:"id"`
	RawText   string    `json:"raw_text"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// IntentResult is the interpreted purpose of a query. Produced once per
// query, never mutated.
type IntentResult struct {
	Category   IntentCategory `json:"category"`
	Confidence float64        `json:"confidence"`
	Entities   EntityBag      `json:"entities"`
}

type FreshnessClass string

const (
	FreshnessRealtime FreshnessClass = "realtime"
	FreshnessDaily    FreshnessClass = "daily"
	FreshnessStatic   FreshnessClass = "static"
)

type ParamType string

const (
	ParamString    ParamType = "string"
	ParamNumber    ParamType = "number"
	ParamDateRange ParamType = "date_range"
)

// ParameterSpec describes one named input of a tool.
type ParameterSpec struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
}

// ToolDescriptor is the registry-owned metadata for one capability.
// Registered once at startup and read-only afterwards.
type ToolDescriptor struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	InputSchema []ParameterSpec `json:"input_schema,omitempty"`
	Reliability float64         `json:"reliability"`
	Freshness   FreshnessClass  `json:"freshness"`
	CostWeight  float64         `json:"cost_weight"`
}

// RequiredParams returns the names of the required schema fields, in
// schema order.
func (d ToolDescriptor) RequiredParams() []string {
	var required []string
	for _, p := range d.InputSchema {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// ToolInvocation is one execution attempt against one tool. Immutable.
type ToolInvocation struct {
	InvocationID string         `json:"invocation_id"`
	ToolID       string         `json:"tool_id"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Attempt      int            `json:"attempt"`
}

type ResultStatus string

const (
	StatusOK      ResultStatus = "ok"
	StatusError   ResultStatus = "error"
	StatusTimeout ResultStatus = "timeout"
	StatusEmpty   ResultStatus = "empty"
)

// ToolResult is the settled outcome of one invocation attempt.
type ToolResult struct {
	Invocation  ToolInvocation `json:"invocation"`
	Status      ResultStatus   `json:"status"`
	Payload     any            `json:"payload,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	Latency     time.Duration  `json:"latency"`
}

func (r ToolResult) OK() bool {
	return r.Status == StatusOK
}

type FailureCause string

const (
	CauseAPIError    FailureCause = "api_error"
	CauseNoData      FailureCause = "no_data"
	CauseTimeout     FailureCause = "timeout"
	CauseBadParams   FailureCause = "bad_params"
	CauseRateLimited FailureCause = "rate_limited"
)

type FallbackStrategy string

const (
	StrategyRetry      FallbackStrategy = "retry_same_tool"
	StrategySubstitute FallbackStrategy = "substitute_tool"
	StrategyBroaden    FallbackStrategy = "broaden_params"
	StrategyRelax      FallbackStrategy = "relax_params"
	StrategyDegrade    FallbackStrategy = "degrade"
)

// FailureRecord is one entry of the per-query failure ledger. Append-only.
type FailureRecord struct {
	Invocation ToolInvocation   `json:"invocation"`
	Cause      FailureCause     `json:"cause"`
	Strategy   FallbackStrategy `json:"strategy"`
}

type EngagementLevel string

const (
	EngagementCasual   EngagementLevel = "casual"
	EngagementRegular  EngagementLevel = "regular"
	EngagementSuperfan EngagementLevel = "superfan"
)

// UserProfile is the accumulated preference state for one user. Owned and
// mutated exclusively by the memory store.
type UserProfile struct {
	UserID           string             `json:"user_id"`
	FavoriteEntities map[string]int     `json:"favorite_entities,omitempty"`
	InterestVector   map[string]float64 `json:"interest_vector,omitempty"`
	Engagement       EngagementLevel    `json:"engagement"`
	QueryCount       int                `json:"query_count"`
	LastSeen         time.Time          `json:"last_seen"`
}

// NewUserProfile returns an empty casual profile for the user.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:           userID,
		FavoriteEntities: make(map[string]int, 8),
		InterestVector:   make(map[string]float64, 8),
		Engagement:       EngagementCasual,
	}
}

// Affinity returns the normalized interest weight for a tool category.
func (p *UserProfile) Affinity(category string) float64 {
	if p == nil || len(p.InterestVector) == 0 {
		return 0
	}
	return p.InterestVector[category]
}

// Clone returns a deep copy so callers can read without racing the
// store's writer.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.FavoriteEntities = make(map[string]int, len(p.FavoriteEntities))
	for k, v := range p.FavoriteEntities {
		cp.FavoriteEntities[k] = v
	}
	cp.InterestVector = make(map[string]float64, len(p.InterestVector))
	for k, v := range p.InterestVector {
		cp.InterestVector[k] = v
	}
	return &cp
}

// ConversationTurn is one completed query/response exchange.
type ConversationTurn struct {
	Query           Query        `json:"query"`
	Intent          IntentResult `json:"intent"`
	SelectedTools   []string     `json:"selected_tools,omitempty"`
	ResponseSummary string       `json:"response_summary"`
	Timestamp       time.Time    `json:"timestamp"`
}

// Suggestion is a proactive follow-up shown with a response. Ephemeral,
// never persisted beyond the turn.
type Suggestion struct {
	Text           string  `json:"text"`
	TargetCategory string  `json:"target_category"`
	Score          float64 `json:"score"`
}

// Outcome is the terminal disposition of one query pipeline run.
type Outcome string

const (
	OutcomeResolved     Outcome = "resolved"
	OutcomePartial      Outcome = "partial"
	OutcomeNoCapability Outcome = "no_capability"
	OutcomeExhausted    Outcome = "exhausted"
)
