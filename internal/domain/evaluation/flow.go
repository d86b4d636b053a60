package evaluation

import (
	"fmt"
	"sort"
	"strings"
)

// Task is a workflow phase; an employee document's status is always one of these.
type Task string

const (
	TaskWorkerSelfEvaluation Task = "Worker Self-Evaluation"
	TaskManagerEvaluation    Task = "Manager Evaluation"
	TaskNormalization        Task = "Normalization"
	TaskShareReviewDocument  Task = "Share Review Document"
	TaskWorkerFinalFeedback  Task = "Worker Final Feedback"
	TaskManagerFinalFeedback Task = "Manager Final Feedback"
	TaskCloseDocument        Task = "Close Document"
)

var Tasks = []Task{
	TaskWorkerSelfEvaluation,
	TaskManagerEvaluation,
	TaskNormalization,
	TaskShareReviewDocument,
	TaskWorkerFinalFeedback,
	TaskManagerFinalFeedback,
	TaskCloseDocument,
}

func ParseTask(value string) (Task, error) {
	for _, t := range Tasks {
		if strings.EqualFold(string(t), strings.TrimSpace(value)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown task %q", value)
}

// taskOwners lists which roles may work on a document while it sits in a task.
var taskOwners = map[Task][]Role{
	TaskWorkerSelfEvaluation: {RoleWorker},
	TaskManagerEvaluation:    {RolePrimaryAppraiser, RoleSecondaryAppraiser},
	TaskNormalization:        {RoleHR},
	TaskShareReviewDocument:  {RoleHR},
	TaskWorkerFinalFeedback:  {RoleWorker},
	TaskManagerFinalFeedback: {RolePrimaryAppraiser, RoleSecondaryAppraiser},
	TaskCloseDocument:        nil,
}

func (t Task) OwnedBy(role Role) bool {
	for _, owner := range taskOwners[t] {
		if owner == role {
			return true
		}
	}
	return false
}

type FlowType string

const (
	FlowTypeStart      FlowType = "Start"
	FlowTypeParallel   FlowType = "Parallel"
	FlowTypeSequential FlowType = "Sequential"
)

type EvaluationStep struct {
	ID       string `json:"id"`
	Sequence int    `json:"sequence"`
	Task     Task   `json:"task"`
	Role     Role   `json:"role"`
}

type EvaluationFlow struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Steps []EvaluationStep `json:"steps"`
}

// Ordered returns the steps sorted by sequence, keeping declaration order among equal sequences.
func (f EvaluationFlow) Ordered() []EvaluationStep {
	steps := make([]EvaluationStep, len(f.Steps))
	copy(steps, f.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Sequence < steps[j].Sequence })
	return steps
}

// FlowTypes derives the flow type of each step in sequence order.
func (f EvaluationFlow) FlowTypes() []FlowType {
	steps := f.Ordered()
	types := make([]FlowType, len(steps))
	for i, step := range steps {
		switch {
		case i == 0:
			types[i] = FlowTypeStart
		case step.Sequence == steps[i-1].Sequence:
			types[i] = FlowTypeParallel
		default:
			types[i] = FlowTypeSequential
		}
	}
	return types
}

func (f EvaluationFlow) Validate() error {
	var issues Issues
	issues.Required("name", f.Name)
	if len(f.Steps) == 0 {
		issues.Add("steps", "at least one step is required")
	}
	for i, step := range f.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if step.Sequence <= 0 {
			issues.Add(field+".sequence", "must be a positive integer")
		}
		if _, err := ParseTask(string(step.Task)); err != nil {
			issues.Add(field+".task", err.Error())
		}
		if _, err := ParseRole(string(step.Role)); err != nil {
			issues.Add(field+".role", err.Error())
		}
	}
	return issues.Err()
}

func (f EvaluationFlow) InitialStatus() (Task, error) {
	steps := f.Ordered()
	if len(steps) == 0 {
		return "", configError("evaluation flow "+f.ID, ErrEmptyFlow)
	}
	return steps[0].Task, nil
}

func (f EvaluationFlow) TerminalStatus() (Task, error) {
	steps := f.Ordered()
	if len(steps) == 0 {
		return "", configError("evaluation flow "+f.ID, ErrEmptyFlow)
	}
	last := steps[len(steps)-1].Sequence
	for _, step := range steps {
		if step.Sequence == last {
			return step.Task, nil
		}
	}
	return "", nil
}

func (f EvaluationFlow) stepFor(status Task) (EvaluationStep, bool) {
	for _, step := range f.Ordered() {
		if step.Task == status {
			return step, true
		}
	}
	return EvaluationStep{}, false
}

// SequenceOf returns the sequence of the step carrying status.
func (f EvaluationFlow) SequenceOf(status Task) (int, bool) {
	step, ok := f.stepFor(status)
	return step.Sequence, ok
}

// Next returns the status following current. ok is false when current is terminal.
func (f EvaluationFlow) Next(current Task) (next Task, ok bool, err error) {
	if len(f.Steps) == 0 {
		return "", false, configError("evaluation flow "+f.ID, ErrEmptyFlow)
	}
	step, found := f.stepFor(current)
	if !found {
		return "", false, configError("evaluation flow "+f.ID, fmt.Errorf("%w: %q", ErrStepNotFound, current))
	}
	for _, candidate := range f.Ordered() {
		if candidate.Sequence > step.Sequence {
			return candidate.Task, true, nil
		}
	}
	return "", false, nil
}

// Advance moves current forward when ready reports that every assigned role has completed.
// A nil ready is treated as always ready.
func (f EvaluationFlow) Advance(current Task, ready func() bool) (Task, bool, error) {
	next, ok, err := f.Next(current)
	if err != nil || !ok {
		return "", false, err
	}
	if ready != nil && !ready() {
		return "", false, nil
	}
	return next, true, nil
}

// DocumentState is the part of an employee document the bulk promotion needs.
type DocumentState struct {
	ID      string
	CycleID string
	Status  Task
}

// PromoteBulk computes the one shared next status for a homogeneous selection.
func PromoteBulk(flow EvaluationFlow, docs []DocumentState) (Task, error) {
	if len(docs) == 0 {
		return "", &WorkflowError{Err: ErrEmptySelection}
	}
	status, cycle := docs[0].Status, docs[0].CycleID
	for _, doc := range docs[1:] {
		if doc.Status != status || doc.CycleID != cycle {
			return "", &WorkflowError{Status: status, Err: ErrMixedSelection}
		}
	}
	next, ok, err := flow.Next(status)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &WorkflowError{Status: status, Err: ErrNoNextStep}
	}
	return next, nil
}
