package memory

import (
	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

// Engagement thresholds on the rolling query count.
const (
	regularThreshold  = 10
	superfanThreshold = 50
)

// applyTurn folds one completed turn into the profile: an exponentially
// weighted update of the interest vector, frequency increments for the
// mentioned entities, and the engagement transition. The caller holds
// the per-user write lock.
func applyTurn(profile *contractx.UserProfile, turn contractx.ConversationTurn, decay float64) {
	if profile.InterestVector == nil {
		profile.InterestVector = make(map[string]float64, 8)
	}
	if profile.FavoriteEntities == nil {
		profile.FavoriteEntities = make(map[string]int, 8)
	}

	for category := range profile.InterestVector {
		profile.InterestVector[category] *= decay
	}
	for _, toolID := range turn.SelectedTools {
		profile.InterestVector[categoryOf(toolID)] += 1 - decay
	}
	if contractx.KnownIntent(turn.Intent.Category) {
		profile.InterestVector[string(turn.Intent.Category)] += 1 - decay
	}
	renormalize(profile.InterestVector)

	for _, kind := range contractx.EntityKinds {
		for _, value := range turn.Intent.Entities[kind] {
			profile.FavoriteEntities[value]++
		}
	}

	profile.QueryCount++
	profile.LastSeen = turn.Timestamp
	profile.Engagement = engagementFor(profile.QueryCount)
}

// renormalize scales the vector so its weights sum to 1, keeping every
// weight non-negative.
func renormalize(vector map[string]float64) {
	var total float64
	for category, weight := range vector {
		if weight < 0 {
			vector[category] = 0
			continue
		}
		total += weight
	}
	if total <= 0 {
		return
	}
	for category := range vector {
		vector[category] /= total
	}
}

func engagementFor(queries int) contractx.EngagementLevel {
	switch {
	case queries >= superfanThreshold:
		return contractx.EngagementSuperfan
	case queries >= regularThreshold:
		return contractx.EngagementRegular
	default:
		return contractx.EngagementCasual
	}
}

// categoryOf derives the interest category from a tool id of the form
// "category.name".
func categoryOf(toolID string) string {
	for i := 0; i < len(toolID); i++ {
		if toolID[i] == '.' {
			return toolID[:i]
		}
	}
	return toolID
}
