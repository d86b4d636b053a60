// Package lov holds the lists of values used to seed and validate reference data.
package lov

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Values struct {
	PersonTypes       []string `yaml:"personTypes" json:"personTypes"`
	Departments       []string `yaml:"departments" json:"departments"`
	LegalEntities     []string `yaml:"legalEntities" json:"legalEntities"`
	TechnologistTypes []string `yaml:"technologistTypes" json:"technologistTypes"`
	GoalStatuses      []string `yaml:"goalStatuses" json:"goalStatuses"`
}

// Load reads path, or the embedded defaults when path is empty.
func Load(path string) (Values, error) {
	data := defaultYAML
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Values{}, fmt.Errorf("read lov file: %w", err)
		}
		data = raw
	}
	return Parse(data)
}

func Parse(data []byte) (Values, error) {
	var v Values
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Values{}, fmt.Errorf("parse lov: %w", err)
	}
	if len(v.TechnologistTypes) == 0 {
		return Values{}, fmt.Errorf("parse lov: technologistTypes must not be empty")
	}
	return v, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

func (v Values) HasTechnologistType(value string) bool {
	return contains(v.TechnologistTypes, value)
}

func (v Values) HasGoalStatus(value string) bool {
	return len(v.GoalStatuses) == 0 || contains(v.GoalStatuses, value)
}

// KnownRuleValue reports whether value is a listed value for an eligibility rule type.
// Lists left empty accept anything.
func (v Values) KnownRuleValue(ruleType, value string) bool {
	var list []string
	switch ruleType {
	case "Person Type":
		list = v.PersonTypes
	case "Department":
		list = v.Departments
	case "Legal Entity":
		list = v.LegalEntities
	}
	return len(list) == 0 || contains(list, value)
}
