package evaluation

import (
	"fmt"
	"strings"
)

type GoalType string

const (
	GoalTypeWork GoalType = "Work"
	GoalTypeHome GoalType = "Home"
)

func ParseGoalType(value string) (GoalType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "work":
		return GoalTypeWork, nil
	case "home":
		return GoalTypeHome, nil
	}
	return "", fmt.Errorf("unknown goal type %q", value)
}

// GoalTypeSet is the set of goal categories an appraiser may rate.
type GoalTypeSet uint8

const (
	goalTypeWorkBit GoalTypeSet = 1 << iota
	goalTypeHomeBit
)

func NewGoalTypeSet(types ...GoalType) GoalTypeSet {
	var set GoalTypeSet
	for _, t := range types {
		set = set.With(t)
	}
	return set
}

func bitFor(t GoalType) GoalTypeSet {
	switch t {
	case GoalTypeWork:
		return goalTypeWorkBit
	case GoalTypeHome:
		return goalTypeHomeBit
	}
	return 0
}

func (s GoalTypeSet) With(t GoalType) GoalTypeSet {
	return s | bitFor(t)
}

func (s GoalTypeSet) Has(t GoalType) bool {
	bit := bitFor(t)
	return bit != 0 && s&bit != 0
}

func (s GoalTypeSet) Empty() bool {
	return s == 0
}

func (s GoalTypeSet) Types() []GoalType {
	var out []GoalType
	if s.Has(GoalTypeWork) {
		out = append(out, GoalTypeWork)
	}
	if s.Has(GoalTypeHome) {
		out = append(out, GoalTypeHome)
	}
	return out
}

// String renders the storage form, e.g. "Work,Home".
func (s GoalTypeSet) String() string {
	types := s.Types()
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func ParseGoalTypeSet(value string) (GoalTypeSet, error) {
	var set GoalTypeSet
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseGoalType(part)
		if err != nil {
			return 0, err
		}
		set = set.With(t)
	}
	return set, nil
}

func (s GoalTypeSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *GoalTypeSet) UnmarshalText(text []byte) error {
	parsed, err := ParseGoalTypeSet(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
