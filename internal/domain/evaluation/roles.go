package evaluation

import (
	"fmt"
	"strings"
)

// Role is the canonical evaluation role shared by workflow steps and section permissions.
type Role string

const (
	RoleWorker             Role = "Worker"
	RolePrimaryAppraiser   Role = "Primary Appraiser"
	RoleSecondaryAppraiser Role = "Secondary Appraiser"
	RoleHR                 Role = "HR"
)

var Roles = []Role{RoleWorker, RolePrimaryAppraiser, RoleSecondaryAppraiser, RoleHR}

// roleLabels maps every label used by flow steps or permission tables to its canonical role.
var roleLabels = map[string]Role{
	"worker":              RoleWorker,
	"employee":            RoleWorker,
	"primary appraiser":   RolePrimaryAppraiser,
	"primary (manager)":   RolePrimaryAppraiser,
	"primary":             RolePrimaryAppraiser,
	"manager":             RolePrimaryAppraiser,
	"secondary appraiser": RoleSecondaryAppraiser,
	"secondary (manager)": RoleSecondaryAppraiser,
	"secondary":           RoleSecondaryAppraiser,
	"hr":                  RoleHR,
}

func ParseRole(label string) (Role, error) {
	role, ok := roleLabels[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", fmt.Errorf("unknown role %q", label)
	}
	return role, nil
}

func (r Role) IsAppraiser() bool {
	return r == RolePrimaryAppraiser || r == RoleSecondaryAppraiser
}

type AppraiserType string

const (
	AppraiserPrimary   AppraiserType = "Primary"
	AppraiserSecondary AppraiserType = "Secondary"
)

func ParseAppraiserType(value string) (AppraiserType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "primary", "primary appraiser":
		return AppraiserPrimary, nil
	case "secondary", "secondary appraiser":
		return AppraiserSecondary, nil
	}
	return "", fmt.Errorf("unknown appraiser type %q", value)
}

func (t AppraiserType) Role() Role {
	if t == AppraiserSecondary {
		return RoleSecondaryAppraiser
	}
	return RolePrimaryAppraiser
}
