package evaluation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyFlow           = errors.New("evaluation flow has no steps")
	ErrStepNotFound        = errors.New("status not found in evaluation flow")
	ErrNoNextStep          = errors.New("document is already at the last step")
	ErrReadOnly            = errors.New("document is read-only for this role")
	ErrStaleStatus         = errors.New("document status changed since it was read")
	ErrMixedSelection      = errors.New("selected documents do not share status and cycle")
	ErrEmptySelection      = errors.New("no documents selected")
	ErrWeightConfigMissing = errors.New("technologist weight configuration missing")
)

// Issue is a single user-correctable problem tied to an input field.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Issues collects validation problems; Err returns nil when nothing was added.
type Issues struct {
	list []Issue
}

func (v *Issues) Add(field, reason string) {
	v.list = append(v.list, Issue{Field: field, Reason: reason})
}

func (v *Issues) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func (v *Issues) Empty() bool {
	return len(v.list) == 0
}

func (v *Issues) Err() error {
	if len(v.list) == 0 {
		return nil
	}
	out := make([]Issue, len(v.list))
	copy(out, v.list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return &ValidationError{Issues: out}
}

// ConfigError reports administrator misconfiguration: the action cannot run until the data is fixed.
type ConfigError struct {
	Subject string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Subject, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configError(subject string, err error) error {
	return &ConfigError{Subject: subject, Err: err}
}

// WorkflowError reports a submission or transition the current workflow state does not allow.
type WorkflowError struct {
	Status Task
	Role   Role
	Err    error
}

func (e *WorkflowError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("workflow error at %q: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("workflow error at %q for %s: %v", e.Status, e.Role, e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// Warning is a non-fatal, per-employee resolution problem.
type Warning struct {
	PersonNumber string `json:"personNumber"`
	Message      string `json:"message"`
}

func (w Warning) String() string {
	return w.PersonNumber + ": " + w.Message
}
