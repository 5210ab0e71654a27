package suggest

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

// MaxSuggestions caps how many follow-ups ride along with a response.
const MaxSuggestions = 2

// Suggester produces follow-up prompts for responses that invite them.
// Suggestions are only offered on comparison or analysis intents, or
// when the answer drew on two or more tool categories; simple lookups
// stay clean.
type Suggester struct{}

func New() *Suggester {
	return &Suggester{}
}

// trendWeight converts an aggregate mention count into a score boost,
// capped so trending never outranks a direct interest match.
const (
	trendWeight = 0.02
	trendCap    = 0.2
)

// candidate pairs a suggestion with the entity it is about, so scoring
// can apply the cross-user trending boost.
type candidate struct {
	contractx.Suggestion
	subject string
}

// Build returns up to MaxSuggestions follow-ups, ranked by the user's
// interest affinity plus how much the subject is trending across all
// users, deduplicated against recently shown texts. mentions may be nil.
func (s *Suggester) Build(
	intent contractx.IntentResult,
	results []contractx.ToolResult,
	profile *contractx.UserProfile,
	recentlyShown []string,
	mentions func(value string) int,
) []contractx.Suggestion {
	categories := resultCategories(results)
	if !eligible(intent.Category, len(categories)) {
		return nil
	}

	candidates := s.candidates(intent, categories)
	if len(candidates) == 0 {
		return nil
	}

	shown := make(map[string]struct{}, len(recentlyShown))
	for _, text := range recentlyShown {
		shown[normalize(text)] = struct{}{}
	}

	for i := range candidates {
		if profile != nil {
			candidates[i].Score += profile.Affinity(candidates[i].TargetCategory)
		}
		if mentions != nil && candidates[i].subject != "" {
			boost := trendWeight * float64(mentions(candidates[i].subject))
			if boost > trendCap {
				boost = trendCap
			}
			candidates[i].Score += boost
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].Text < candidates[b].Text
	})

	picked := make([]contractx.Suggestion, 0, MaxSuggestions)
	seen := make(map[string]struct{}, MaxSuggestions)
	for _, c := range candidates {
		key := normalize(c.Text)
		if _, dup := shown[key]; dup {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		picked = append(picked, c.Suggestion)
		if len(picked) == MaxSuggestions {
			break
		}
	}
	return picked
}

func eligible(category contractx.IntentCategory, resultCategories int) bool {
	if category == contractx.IntentComparison || category == contractx.IntentAnalysis {
		return true
	}
	return resultCategories >= 2
}

func (s *Suggester) candidates(intent contractx.IntentResult, categories []string) []candidate {
	var out []candidate

	teams := intent.Entities.Values(contractx.EntityTeam)
	players := intent.Entities.Values(contractx.EntityPlayer)

	switch intent.Category {
	case contractx.IntentComparison:
		if len(teams) >= 2 {
			out = append(out, candidate{
				Suggestion: contractx.Suggestion{
					Text:           fmt.Sprintf("Want a prediction for the next %s vs %s meeting?", teams[0], teams[1]),
					TargetCategory: "prediction",
					Score:          0.5,
				},
				subject: teams[0],
			})
		}
		if subject := firstOf(players, teams); subject != "" {
			out = append(out, candidate{
				Suggestion: contractx.Suggestion{
					Text:           fmt.Sprintf("Should I pull up %s's recent form in detail?", subject),
					TargetCategory: "stats",
					Score:          0.4,
				},
				subject: subject,
			})
		}
	case contractx.IntentAnalysis:
		if subject := firstOf(teams, players); subject != "" {
			out = append(out, candidate{
				Suggestion: contractx.Suggestion{
					Text:           fmt.Sprintf("Want the underlying numbers behind %s's performances?", subject),
					TargetCategory: "stats",
					Score:          0.5,
				},
				subject: subject,
			})
			out = append(out, candidate{
				Suggestion: contractx.Suggestion{
					Text:           fmt.Sprintf("Should I check the latest news around %s?", subject),
					TargetCategory: "news",
					Score:          0.3,
				},
				subject: subject,
			})
		}
	}

	// Cross-category follow-ups when the answer already spans topics.
	for _, category := range categories {
		subject := firstOf(teams, players)
		if subject == "" {
			continue
		}
		switch category {
		case "news":
			out = append(out, candidate{
				Suggestion: contractx.Suggestion{
					Text:           fmt.Sprintf("Curious how %s's stats back up the headlines?", subject),
					TargetCategory: "stats",
					Score:          0.3,
				},
				subject: subject,
			})
		case "match_data":
			out = append(out, candidate{
				Suggestion: contractx.Suggestion{
					Text:           fmt.Sprintf("Want a prediction for %s's next match?", subject),
					TargetCategory: "prediction",
					Score:          0.3,
				},
				subject: subject,
			})
		}
	}
	return out
}

// resultCategories collects the distinct categories of successful
// results, derived from the dotted tool id.
func resultCategories(results []contractx.ToolResult) []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for _, result := range results {
		if !result.OK() {
			continue
		}
		category := result.Invocation.ToolID
		if i := strings.IndexByte(category, '.'); i >= 0 {
			category = category[:i]
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

func firstOf(lists ...[]string) string {
	for _, list := range lists {
		if len(list) > 0 {
			return list[0]
		}
	}
	return ""
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
