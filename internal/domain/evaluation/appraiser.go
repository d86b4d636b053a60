package evaluation

import (
	"fmt"
	"strings"
)

type Employee struct {
	PersonNumber     string `json:"personNumber"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	PersonType       string `json:"personType"`
	Department       string `json:"department"`
	LegalEntity      string `json:"legalEntity"`
	TechnologistType string `json:"technologistType"`
	WorkManager      string `json:"workManager"`
	HomeManager      string `json:"homeManager"`
}

type ManagerRole string

const (
	WorkManager ManagerRole = "Work Manager"
	HomeManager ManagerRole = "Home Manager"
)

func ParseManagerRole(value string) (ManagerRole, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "work manager":
		return WorkManager, nil
	case "home manager":
		return HomeManager, nil
	}
	return "", fmt.Errorf("unknown manager role %q", value)
}

func (m ManagerRole) personFor(emp Employee) string {
	if m == WorkManager {
		return emp.WorkManager
	}
	return emp.HomeManager
}

func (m ManagerRole) goalType() GoalType {
	if m == WorkManager {
		return GoalTypeWork
	}
	return GoalTypeHome
}

// TechnologistWeight configures goal weights and appraiser roles per technologist classification.
type TechnologistWeight struct {
	TechnologistType   string      `json:"technologistType"`
	WorkGoalWeight     int         `json:"workGoalWeight"`
	HomeGoalWeight     int         `json:"homeGoalWeight"`
	PrimaryAppraiser   ManagerRole `json:"primaryAppraiser"`
	SecondaryAppraiser ManagerRole `json:"secondaryAppraiser"`
}

func (w TechnologistWeight) Validate() error {
	var issues Issues
	issues.Required("technologistType", w.TechnologistType)
	if w.WorkGoalWeight < 0 || w.HomeGoalWeight < 0 {
		issues.Add("weights", "must not be negative")
	}
	if w.WorkGoalWeight+w.HomeGoalWeight != 100 {
		issues.Add("weights", "work and home goal weights must sum to 100")
	}
	if _, err := ParseManagerRole(string(w.PrimaryAppraiser)); err != nil {
		issues.Add("primaryAppraiser", err.Error())
	}
	if _, err := ParseManagerRole(string(w.SecondaryAppraiser)); err != nil {
		issues.Add("secondaryAppraiser", err.Error())
	}
	return issues.Err()
}

type AppraiserMapping struct {
	ID                    string        `json:"id"`
	EmployeePersonNumber  string        `json:"employeePersonNumber"`
	PerformanceCycleID    string        `json:"performanceCycleId"`
	AppraiserPersonNumber string        `json:"appraiserPersonNumber"`
	AppraiserType         AppraiserType `json:"appraiserType"`
	EvalGoalTypes         GoalTypeSet   `json:"evalGoalTypes"`
	IsCompleted           bool          `json:"isCompleted"`
}

type Resolution struct {
	Primary   *AppraiserMapping
	Secondary *AppraiserMapping
	Warnings  []Warning
}

// Mappings returns the resolved mappings, primary first.
func (r Resolution) Mappings() []AppraiserMapping {
	var out []AppraiserMapping
	if r.Primary != nil {
		out = append(out, *r.Primary)
	}
	if r.Secondary != nil {
		out = append(out, *r.Secondary)
	}
	return out
}

// ResolveAppraisers determines the appraisers of emp for a cycle. A missing weight
// configuration returns ErrWeightConfigMissing wrapped in a ConfigError; missing managers
// only produce warnings.
func ResolveAppraisers(emp Employee, cycleID string, weights map[string]TechnologistWeight) (Resolution, error) {
	var res Resolution
	weight, ok := weights[emp.TechnologistType]
	if !ok {
		return res, configError("technologist type "+emp.TechnologistType, ErrWeightConfigMissing)
	}

	primaryPerson := weight.PrimaryAppraiser.personFor(emp)
	secondaryPerson := weight.SecondaryAppraiser.personFor(emp)

	newMapping := func(person string, kind AppraiserType, types GoalTypeSet) *AppraiserMapping {
		return &AppraiserMapping{
			EmployeePersonNumber:  emp.PersonNumber,
			PerformanceCycleID:    cycleID,
			AppraiserPersonNumber: person,
			AppraiserType:         kind,
			EvalGoalTypes:         types,
		}
	}

	if primaryPerson != "" && primaryPerson == secondaryPerson {
		res.Primary = newMapping(primaryPerson, AppraiserPrimary, NewGoalTypeSet(GoalTypeWork, GoalTypeHome))
		return res, nil
	}

	if primaryPerson != "" {
		res.Primary = newMapping(primaryPerson, AppraiserPrimary, NewGoalTypeSet(weight.PrimaryAppraiser.goalType()))
	} else {
		res.Warnings = append(res.Warnings, Warning{
			PersonNumber: emp.PersonNumber,
			Message:      fmt.Sprintf("no %s for primary appraiser", weight.PrimaryAppraiser),
		})
	}
	if secondaryPerson != "" {
		res.Secondary = newMapping(secondaryPerson, AppraiserSecondary, NewGoalTypeSet(weight.SecondaryAppraiser.goalType()))
	} else {
		res.Warnings = append(res.Warnings, Warning{
			PersonNumber: emp.PersonNumber,
			Message:      fmt.Sprintf("no %s for secondary appraiser", weight.SecondaryAppraiser),
		})
	}
	return res, nil
}

// ValidateAppraiserGroup checks a manually assigned set of mappings for one employee and cycle.
func ValidateAppraiserGroup(employeePersonNumber string, mappings []AppraiserMapping) error {
	var issues Issues
	seen := map[string]bool{}
	primaries := 0
	for i, m := range mappings {
		field := fmt.Sprintf("appraisers[%d]", i)
		if strings.TrimSpace(m.AppraiserPersonNumber) == "" {
			issues.Add(field+".appraiserPersonNumber", "is required")
			continue
		}
		if m.AppraiserPersonNumber == employeePersonNumber {
			issues.Add(field+".appraiserPersonNumber", "employee cannot appraise themselves")
		}
		if seen[m.AppraiserPersonNumber] {
			issues.Add(field+".appraiserPersonNumber", "appraiser "+m.AppraiserPersonNumber+" is assigned more than once")
		}
		seen[m.AppraiserPersonNumber] = true
		if m.AppraiserType == AppraiserPrimary {
			primaries++
		}
		if m.EvalGoalTypes.Empty() {
			issues.Add(field+".evalGoalTypes", "at least one goal type is required")
		}
	}
	if primaries > 1 {
		issues.Add("appraisers", "only one primary appraiser is allowed")
	}
	return issues.Err()
}

// DropDuplicateAppraisers removes resolved mappings whose appraiser already holds a mapping
// for the same employee and cycle.
func DropDuplicateAppraisers(resolved, existing []AppraiserMapping) ([]AppraiserMapping, []Warning) {
	taken := map[string]bool{}
	for _, m := range existing {
		taken[m.EmployeePersonNumber+"|"+m.PerformanceCycleID+"|"+m.AppraiserPersonNumber] = true
	}
	var kept []AppraiserMapping
	var warnings []Warning
	for _, m := range resolved {
		key := m.EmployeePersonNumber + "|" + m.PerformanceCycleID + "|" + m.AppraiserPersonNumber
		if taken[key] {
			warnings = append(warnings, Warning{
				PersonNumber: m.EmployeePersonNumber,
				Message:      fmt.Sprintf("appraiser %s already assigned, %s mapping skipped", m.AppraiserPersonNumber, m.AppraiserType),
			})
			continue
		}
		taken[key] = true
		kept = append(kept, m)
	}
	return kept, warnings
}
