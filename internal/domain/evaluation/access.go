package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

type SectionType string

const (
	SectionPerformanceGoals   SectionType = "Performance Goals"
	SectionOverallSummary     SectionType = "Overall Summary"
	SectionRatingsAndComments SectionType = "Ratings and Comments"
)

type CalculationMethod string

const (
	CalculationManual    CalculationMethod = "Manual"
	CalculationAutomatic CalculationMethod = "Automatic"
)

// AccessPermission is one role's row in a section's permission matrix.
type AccessPermission struct {
	Role                          Role `json:"role"`
	View                          bool `json:"view"`
	Rate                          bool `json:"rate"`
	ViewWorkerRatings             bool `json:"viewWorkerRatings"`
	ViewPrimaryAppraiserRatings   bool `json:"viewPrimaryAppraiserRatings"`
	ViewSecondaryAppraiserRatings bool `json:"viewSecondaryAppraiserRatings"`
}

// BasicPermission is the reduced view/edit projection used by simple sections.
type BasicPermission struct {
	Role Role `json:"role"`
	View bool `json:"view"`
	Edit bool `json:"edit"`
}

func (p AccessPermission) Basic() BasicPermission {
	return BasicPermission{Role: p.Role, View: p.View, Edit: p.Rate}
}

// UnmarshalJSON accepts both the full shape and the legacy {view, edit} shape.
func (p *AccessPermission) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role                          string `json:"role"`
		View                          bool   `json:"view"`
		Rate                          *bool  `json:"rate"`
		Edit                          *bool  `json:"edit"`
		ViewWorkerRatings             bool   `json:"viewWorkerRatings"`
		ViewPrimaryAppraiserRatings   bool   `json:"viewPrimaryAppraiserRatings"`
		ViewSecondaryAppraiserRatings bool   `json:"viewSecondaryAppraiserRatings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role, err := ParseRole(raw.Role)
	if err != nil {
		return err
	}
	*p = AccessPermission{
		Role:                          role,
		View:                          raw.View,
		ViewWorkerRatings:             raw.ViewWorkerRatings,
		ViewPrimaryAppraiserRatings:   raw.ViewPrimaryAppraiserRatings,
		ViewSecondaryAppraiserRatings: raw.ViewSecondaryAppraiserRatings,
	}
	switch {
	case raw.Rate != nil:
		p.Rate = *raw.Rate
	case raw.Edit != nil:
		p.Rate = *raw.Edit
	}
	return nil
}

type Section struct {
	ID                      string             `json:"id"`
	TemplateID              string             `json:"templateId"`
	Name                    string             `json:"name"`
	Order                   int                `json:"order"`
	Type                    SectionType        `json:"type"`
	RatingEnabled           bool               `json:"ratingEnabled"`
	SectionRatingMandatory  bool               `json:"sectionRatingMandatory"`
	ItemRatingMandatory     bool               `json:"itemRatingMandatory"`
	CommentEnabled          bool               `json:"commentEnabled"`
	SectionCommentMandatory bool               `json:"sectionCommentMandatory"`
	ItemCommentMandatory    bool               `json:"itemCommentMandatory"`
	MinCommentLength        int                `json:"minCommentLength"`
	MaxCommentLength        int                `json:"maxCommentLength"`
	RatingCalculationMethod CalculationMethod  `json:"ratingCalculationMethod"`
	Permissions             []AccessPermission `json:"permissions"`
}

func (s Section) IsGoals() bool {
	return s.Type == SectionPerformanceGoals
}

func (s Section) IsAutomatic() bool {
	return s.IsGoals() && s.RatingEnabled && s.RatingCalculationMethod == CalculationAutomatic
}

func (s Section) Permission(role Role) (AccessPermission, bool) {
	for _, p := range s.Permissions {
		if p.Role == role {
			return p, true
		}
	}
	return AccessPermission{}, false
}

func (s Section) Validate() error {
	var issues Issues
	issues.Required("name", s.Name)
	if s.Order <= 0 {
		issues.Add("order", "must be positive")
	}
	if s.MinCommentLength < 0 || s.MaxCommentLength < 0 {
		issues.Add("commentLength", "must not be negative")
	}
	if s.MaxCommentLength > 0 && s.MinCommentLength > s.MaxCommentLength {
		issues.Add("commentLength", "minimum must not exceed maximum")
	}
	if s.RatingCalculationMethod == CalculationAutomatic && !s.IsGoals() {
		issues.Add("ratingCalculationMethod", "automatic calculation is only available for performance goals sections")
	}
	seen := map[Role]bool{}
	for i, p := range s.Permissions {
		if seen[p.Role] {
			issues.Add(fmt.Sprintf("permissions[%d].role", i), "duplicate role "+string(p.Role))
		}
		seen[p.Role] = true
	}
	return issues.Err()
}

// CanEdit reports whether role may rate or comment on the section.
func CanEdit(section Section, role Role) bool {
	p, ok := section.Permission(role)
	return ok && p.Rate
}

func CanView(section Section, role Role) bool {
	p, ok := section.Permission(role)
	return ok && (p.View || p.Rate)
}

// VisibleCounterpartRoles lists the other roles whose ratings role may see in the section.
func VisibleCounterpartRoles(section Section, role Role) []Role {
	p, ok := section.Permission(role)
	if !ok {
		return nil
	}
	var out []Role
	if p.ViewWorkerRatings && role != RoleWorker {
		out = append(out, RoleWorker)
	}
	if p.ViewPrimaryAppraiserRatings && role != RolePrimaryAppraiser {
		out = append(out, RolePrimaryAppraiser)
	}
	if p.ViewSecondaryAppraiserRatings && role != RoleSecondaryAppraiser {
		out = append(out, RoleSecondaryAppraiser)
	}
	return out
}

// Entry is one rating/comment input; GoalID empty means section level.
type Entry struct {
	SectionID string   `json:"sectionId"`
	GoalID    string   `json:"goalId,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Comment   string   `json:"comment,omitempty"`
}

// ValidateEntries enforces permissions, comment bounds and mandatory fields for a
// submission. goals must already be narrowed to the acting role's goal scope.
func ValidateEntries(sections []Section, goals []Goal, role Role, entries []Entry) error {
	var issues Issues

	byID := make(map[string]Section, len(sections))
	for _, s := range sections {
		byID[s.ID] = s
	}
	goalIDs := make(map[string]bool, len(goals))
	for _, g := range goals {
		goalIDs[g.ID] = true
	}

	type key struct{ section, goal string }
	given := map[key]Entry{}

	for i, e := range entries {
		field := fmt.Sprintf("entries[%d]", i)
		section, ok := byID[e.SectionID]
		if !ok {
			issues.Add(field+".sectionId", "unknown section")
			continue
		}
		if !CanEdit(section, role) {
			issues.Add(field+".sectionId", "not permitted to rate section "+section.Name)
			continue
		}
		if e.GoalID != "" {
			if !section.IsGoals() {
				issues.Add(field+".goalId", "goal entries are only allowed in performance goals sections")
				continue
			}
			if !goalIDs[e.GoalID] {
				issues.Add(field+".goalId", "goal is not in scope for this appraiser")
				continue
			}
		}
		if e.Rating != nil && !section.RatingEnabled {
			issues.Add(field+".rating", "ratings are disabled for section "+section.Name)
		}
		if e.Comment != "" {
			if !section.CommentEnabled {
				issues.Add(field+".comment", "comments are disabled for section "+section.Name)
			} else {
				length := utf8.RuneCountInString(strings.TrimSpace(e.Comment))
				if section.MinCommentLength > 0 && length < section.MinCommentLength {
					issues.Add(field+".comment", fmt.Sprintf("must be at least %d characters", section.MinCommentLength))
				}
				if section.MaxCommentLength > 0 && length > section.MaxCommentLength {
					issues.Add(field+".comment", fmt.Sprintf("must be at most %d characters", section.MaxCommentLength))
				}
			}
		}
		given[key{e.SectionID, e.GoalID}] = e
	}

	for _, section := range sections {
		if !CanEdit(section, role) {
			continue
		}
		e, ok := given[key{section.ID, ""}]
		if section.RatingEnabled && section.SectionRatingMandatory && (!ok || e.Rating == nil) {
			issues.Add("sections."+section.ID+".rating", "rating is mandatory for section "+section.Name)
		}
		if section.CommentEnabled && section.SectionCommentMandatory && (!ok || strings.TrimSpace(e.Comment) == "") {
			issues.Add("sections."+section.ID+".comment", "comment is mandatory for section "+section.Name)
		}
		if !section.IsGoals() {
			continue
		}
		for _, goal := range goals {
			ge, ok := given[key{section.ID, goal.ID}]
			if section.RatingEnabled && section.ItemRatingMandatory && (!ok || ge.Rating == nil) {
				issues.Add("goals."+goal.ID+".rating", "rating is mandatory for goal "+goal.Name)
			}
			if section.CommentEnabled && section.ItemCommentMandatory && (!ok || strings.TrimSpace(ge.Comment) == "") {
				issues.Add("goals."+goal.ID+".comment", "comment is mandatory for goal "+goal.Name)
			}
		}
	}
	return issues.Err()
}
