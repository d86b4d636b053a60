package evaluation

import "math"

type Goal struct {
	ID               string   `json:"id"`
	GoalPlanID       string   `json:"goalPlanId"`
	Name             string   `json:"name"`
	Type             GoalType `json:"type"`
	TechnologistType string   `json:"technologistType"`
	Weight           *float64 `json:"weight,omitempty"`
	Status           string   `json:"status"`
}

// ComputeAutomaticRating returns round(sum(rating * weight / 100)). Goals without a rating
// or a weight contribute nothing.
func ComputeAutomaticRating(goals []Goal, ratings map[string]float64) int {
	var total float64
	for _, goal := range goals {
		if goal.Weight == nil || math.IsNaN(*goal.Weight) {
			continue
		}
		rating, ok := ratings[goal.ID]
		if !ok {
			continue
		}
		total += rating * *goal.Weight / 100
	}
	return int(math.Round(total))
}

// GoalsInScope keeps the goals whose type is in scope.
func GoalsInScope(goals []Goal, scope GoalTypeSet) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, goal := range goals {
		if scope.Has(goal.Type) {
			out = append(out, goal)
		}
	}
	return out
}

// ApplyAutomaticRatings sets the section-level rating of every Automatic performance goals
// section the role can rate to the value derived from its goal-level entries. Any manual
// section rating is replaced; with no goal ratings the derived value is 0.
func ApplyAutomaticRatings(sections []Section, goals []Goal, role Role, entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for _, section := range sections {
		if !section.IsAutomatic() || !CanEdit(section, role) {
			continue
		}
		ratings := map[string]float64{}
		for _, e := range out {
			if e.SectionID == section.ID && e.GoalID != "" && e.Rating != nil {
				ratings[e.GoalID] = *e.Rating
			}
		}
		computed := float64(ComputeAutomaticRating(goals, ratings))
		found := false
		for i := range out {
			if out[i].SectionID == section.ID && out[i].GoalID == "" {
				value := computed
				out[i].Rating = &value
				found = true
			}
		}
		if !found {
			value := computed
			out = append(out, Entry{SectionID: section.ID, Rating: &value})
		}
	}
	return out
}
