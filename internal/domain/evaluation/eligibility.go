package evaluation

import (
	"fmt"
	"strings"
)

type RuleType string

const (
	RulePersonType  RuleType = "Person Type"
	RuleDepartment  RuleType = "Department"
	RuleLegalEntity RuleType = "Legal Entity"
)

func ParseRuleType(value string) (RuleType, error) {
	for _, t := range []RuleType{RulePersonType, RuleDepartment, RuleLegalEntity} {
		if strings.EqualFold(string(t), strings.TrimSpace(value)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown rule type %q", value)
}

type ExclusionRule struct {
	Type   RuleType `json:"type"`
	Values []string `json:"values"`
}

type Eligibility struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Rules []ExclusionRule `json:"rules"`
}

func (e Eligibility) Validate() error {
	var issues Issues
	issues.Required("name", e.Name)
	for i, rule := range e.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if _, err := ParseRuleType(string(rule.Type)); err != nil {
			issues.Add(field+".type", err.Error())
		}
		if len(rule.Values) == 0 {
			issues.Add(field+".values", "at least one value is required")
		}
	}
	return issues.Err()
}

func (r ExclusionRule) attribute(emp Employee) string {
	switch r.Type {
	case RulePersonType:
		return emp.PersonType
	case RuleDepartment:
		return emp.Department
	case RuleLegalEntity:
		return emp.LegalEntity
	}
	return ""
}

// Matches reports whether the rule excludes emp. Empty attributes never match.
func (r ExclusionRule) Matches(emp Employee) bool {
	value := r.attribute(emp)
	if value == "" {
		return false
	}
	for _, candidate := range r.Values {
		if candidate == value {
			return true
		}
	}
	return false
}

// IsEligible reports whether no exclusion rule matches emp.
func IsEligible(emp Employee, eligibility Eligibility) bool {
	for _, rule := range eligibility.Rules {
		if rule.Matches(emp) {
			return false
		}
	}
	return true
}

func FilterEligible(employees []Employee, eligibility Eligibility) []Employee {
	out := make([]Employee, 0, len(employees))
	for _, emp := range employees {
		if IsEligible(emp, eligibility) {
			out = append(out, emp)
		}
	}
	return out
}
