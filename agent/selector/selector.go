package selector

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	registryx "github.com/pitchside/pitchside-agent/agent/registry"
)

type Config struct {
	MaxTools            int     `envconfig:"MAX_TOOLS" split_words:"true" default:"3"`
	ScoreFloor          float64 `envconfig:"SCORE_FLOOR" split_words:"true" default:"0.2"`
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" split_words:"true" default:"0.3"`
}

// Ranked is one selected tool with its composite score.
type Ranked struct {
	Descriptor contractx.ToolDescriptor
	Score      float64
}

// Selector scores registry entries against an interpreted query and the
// user's profile.
type Selector struct {
	registry *registryx.Registry
	cfg      Config
}

func New(registry *registryx.Registry, cfg Config) *Selector {
	if cfg.MaxTools <= 0 {
		cfg.MaxTools = 3
	}
	return &Selector{registry: registry, cfg: cfg}
}

// Exploratory reports whether the intent confidence is too low for a
// category fast path. Exploratory queries score against every category.
func (s *Selector) Exploratory(intent contractx.IntentResult) bool {
	return intent.Confidence < s.cfg.ConfidenceThreshold || !contractx.KnownIntent(intent.Category)
}

// Select returns at most MaxTools descriptors ranked descending by score,
// preferring category diversity. Tools under the score floor are excluded
// even when that leaves fewer than MaxTools. An empty result means the
// registry has no capability for this query; that is an outcome, not an
// error.
func (s *Selector) Select(intent contractx.IntentResult, profile *contractx.UserProfile) []Ranked {
	exploratory := s.Exploratory(intent)

	scored := make([]Ranked, 0, s.registry.Len())
	for _, desc := range s.registry.List("") {
		score := s.score(intent, profile, desc, exploratory)
		if score < s.cfg.ScoreFloor {
			continue
		}
		scored = append(scored, Ranked{Descriptor: desc, Score: score})
	}

	// Deterministic order: score desc, then reliability desc, then id asc.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Descriptor.Reliability != scored[j].Descriptor.Reliability {
			return scored[i].Descriptor.Reliability > scored[j].Descriptor.Reliability
		}
		return scored[i].Descriptor.ID < scored[j].Descriptor.ID
	})

	selected := pickDiverse(scored, s.cfg.MaxTools)

	log.Debug().
		Str("intent", string(intent.Category)).
		Bool("exploratory", exploratory).
		Int("candidates", len(scored)).
		Int("selected", len(selected)).
		Msg("tool selection")

	return selected
}

// pickDiverse takes the top max tools while avoiding duplicate categories,
// falling back to same-category picks only when fewer distinct categories
// clear the floor than slots remain.
func pickDiverse(scored []Ranked, max int) []Ranked {
	selected := make([]Ranked, 0, max)
	used := make(map[string]struct{}, max)

	for _, r := range scored {
		if len(selected) >= max {
			break
		}
		if _, taken := used[r.Descriptor.Category]; taken {
			continue
		}
		selected = append(selected, r)
		used[r.Descriptor.Category] = struct{}{}
	}

	if len(selected) < max {
		for _, r := range scored {
			if len(selected) >= max {
				break
			}
			if containsTool(selected, r.Descriptor.ID) {
				continue
			}
			selected = append(selected, r)
		}
	}
	return selected
}

func containsTool(ranked []Ranked, id string) bool {
	for _, r := range ranked {
		if r.Descriptor.ID == id {
			return true
		}
	}
	return false
}

// Score weights. Each term is normalized to [0,1] before weighting.
const (
	weightCategory    = 0.40
	weightEntities    = 0.30
	weightReliability = 0.15
	weightFreshness   = 0.10
	weightAffinity    = 0.05
)

func (s *Selector) score(
	intent contractx.IntentResult,
	profile *contractx.UserProfile,
	desc contractx.ToolDescriptor,
	exploratory bool,
) float64 {
	return weightCategory*categoryMatch(intent.Category, desc.Category, exploratory) +
		weightEntities*entityCompatibility(intent.Entities, desc.InputSchema) +
		weightReliability*desc.Reliability +
		weightFreshness*freshnessRelevance(intent.Category, desc.Freshness) +
		weightAffinity*profile.Affinity(desc.Category)
}

// relevantCategories mirrors the intent-to-category routing the original
// selector used; exploratory queries treat every category as relevant at
// half strength.
var relevantCategories = map[contractx.IntentCategory]map[string]float64{
	contractx.IntentMatchResult: {"match_data": 1.0, "history": 0.6},
	contractx.IntentComparison:  {"comparison": 1.0, "stats": 0.7, "match_data": 0.5},
	contractx.IntentPrediction:  {"stats": 1.0, "match_data": 0.7, "news": 0.4},
	contractx.IntentNews:        {"news": 1.0},
	contractx.IntentStats:       {"stats": 1.0, "match_data": 0.5},
	contractx.IntentAnalysis:    {"stats": 1.0, "comparison": 0.8, "news": 0.5},
}

func categoryMatch(intent contractx.IntentCategory, category string, exploratory bool) float64 {
	if exploratory {
		return 0.5
	}
	if weights, ok := relevantCategories[intent]; ok {
		return weights[category]
	}
	return 0
}

// entityCompatibility measures how much of the tool's schema the entity
// bag can satisfy. A tool whose required fields cannot be fed scores low;
// a tool with no inputs is trivially compatible.
func entityCompatibility(entities contractx.EntityBag, schema []contractx.ParameterSpec) float64 {
	if len(schema) == 0 {
		return 1
	}
	var satisfied, required, requiredMet float64
	for _, p := range schema {
		kind := KindForParam(p.Name, p.Type)
		_, ok := entities.First(kind)
		if p.Required {
			required++
			if ok {
				requiredMet++
			}
		}
		if ok {
			satisfied++
		}
	}
	if required > 0 && requiredMet < required {
		// Missing required inputs dominate; partial credit keeps the
		// synthesizer's LLM escalation path reachable.
		return 0.25 * (requiredMet / required)
	}
	return satisfied / float64(len(schema))
}

// KindForParam maps a schema field to the entity kind that feeds it.
// Shared with the parameter synthesizer.
func KindForParam(name string, typ contractx.ParamType) contractx.EntityKind {
	if typ == contractx.ParamDateRange {
		return contractx.EntityDateRange
	}
	switch {
	case hasAny(name, "team", "club", "side", "opponent"):
		return contractx.EntityTeam
	case hasAny(name, "player", "scorer"):
		return contractx.EntityPlayer
	case hasAny(name, "competition", "league", "tournament"):
		return contractx.EntityCompetition
	case hasAny(name, "date", "period", "season", "range"):
		return contractx.EntityDateRange
	case hasAny(name, "metric", "stat"):
		return contractx.EntityMetric
	}
	return contractx.EntityKind(name)
}

func hasAny(name string, fragments ...string) bool {
	lowered := strings.ToLower(name)
	for _, f := range fragments {
		if strings.Contains(lowered, f) {
			return true
		}
	}
	return false
}

// freshnessRelevance rewards realtime data for time-sensitive intents and
// static data for historical ones.
func freshnessRelevance(intent contractx.IntentCategory, freshness contractx.FreshnessClass) float64 {
	switch intent {
	case contractx.IntentNews, contractx.IntentPrediction:
		switch freshness {
		case contractx.FreshnessRealtime:
			return 1
		case contractx.FreshnessDaily:
			return 0.6
		default:
			return 0.2
		}
	case contractx.IntentMatchResult:
		switch freshness {
		case contractx.FreshnessRealtime:
			return 0.8
		case contractx.FreshnessDaily:
			return 1
		default:
			return 0.6
		}
	default:
		switch freshness {
		case contractx.FreshnessDaily:
			return 1
		case contractx.FreshnessRealtime:
			return 0.7
		default:
			return 0.7
		}
	}
}
