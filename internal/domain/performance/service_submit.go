package performance

import (
	"context"
	"fmt"
	"strings"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/notifications"
)

// documentContext is everything the engine reads before deciding on a submission.
type documentContext struct {
	doc      EmployeeDocument
	perf     PerformanceDocument
	flow     evaluation.EvaluationFlow
	employee evaluation.Employee
	sections []evaluation.Section
	goals    []evaluation.Goal
	mappings []evaluation.AppraiserMapping
}

func (s *Service) loadDocumentContext(ctx context.Context, employeeDocumentID string) (documentContext, error) {
	var dc documentContext
	doc, err := s.store.GetEmployeeDocument(ctx, employeeDocumentID)
	if err != nil {
		return dc, err
	}
	perf, err := s.store.GetPerformanceDocument(ctx, doc.PerformanceDocumentID)
	if err != nil {
		return dc, err
	}
	if perf.FlowID == "" {
		return dc, &evaluation.ConfigError{Subject: "performance document " + perf.Name, Err: ErrMissingFlow}
	}
	flow, err := s.store.GetFlow(ctx, perf.FlowID)
	if err != nil {
		return dc, err
	}
	employee, err := s.store.GetEmployee(ctx, doc.EmployeePersonNumber)
	if err != nil {
		return dc, err
	}
	sections, err := s.store.ListSections(ctx, perf.TemplateID, perf.SectionIDs)
	if err != nil {
		return dc, err
	}
	goals, err := s.store.ListGoals(ctx, perf.GoalPlanID)
	if err != nil {
		return dc, err
	}
	mappings, err := s.store.ListAppraiserMappings(ctx, MappingFilter{
		PerformanceCycleID:   doc.PerformanceCycleID,
		EmployeePersonNumber: doc.EmployeePersonNumber,
	})
	if err != nil {
		return dc, err
	}
	return documentContext{
		doc:      doc,
		perf:     perf,
		flow:     flow,
		employee: employee,
		sections: sections,
		goals:    goalsForEmployee(goals, employee),
		mappings: mappings,
	}, nil
}

// goalsForEmployee keeps the plan goals addressed to the employee's technologist type.
func goalsForEmployee(goals []evaluation.Goal, emp evaluation.Employee) []evaluation.Goal {
	out := make([]evaluation.Goal, 0, len(goals))
	for _, g := range goals {
		if g.TechnologistType == "" || strings.EqualFold(g.TechnologistType, emp.TechnologistType) {
			out = append(out, g)
		}
	}
	return out
}

// actingRole derives the caller's role on the document. The employee is always the Worker,
// an appraiser mapping wins over the HR flag.
func (dc documentContext) actingRole(actor Actor) (evaluation.Role, *evaluation.AppraiserMapping, []evaluation.AppraiserMapping, error) {
	if actor.PersonNumber != "" && actor.PersonNumber == dc.doc.EmployeePersonNumber {
		return evaluation.RoleWorker, nil, dc.mappings, nil
	}
	own, others := evaluation.SplitMappings(dc.mappings, actor.PersonNumber)
	if own != nil && actor.PersonNumber != "" {
		return own.AppraiserType.Role(), own, others, nil
	}
	if actor.HR {
		return evaluation.RoleHR, nil, dc.mappings, nil
	}
	return "", nil, nil, ErrNotParticipant
}

// scopedGoals narrows the goals to what role may rate.
func (dc documentContext) scopedGoals(role evaluation.Role, own *evaluation.AppraiserMapping) []evaluation.Goal {
	if role.IsAppraiser() && own != nil {
		return evaluation.GoalsInScope(dc.goals, own.EvalGoalTypes)
	}
	return dc.goals
}

// Submit saves the caller's entries and applies the workflow trigger for their role in one batch.
func (s *Service) Submit(ctx context.Context, actor Actor, employeeDocumentID string, entries []evaluation.Entry) (SubmitResult, error) {
	dc, err := s.loadDocumentContext(ctx, employeeDocumentID)
	if err != nil {
		return SubmitResult{}, err
	}
	role, own, others, err := dc.actingRole(actor)
	if err != nil {
		return SubmitResult{}, err
	}
	status := dc.doc.Status

	outcome, err := evaluation.DecideSubmission(status, role, own, others)
	if err != nil {
		return SubmitResult{}, err
	}

	goals := dc.scopedGoals(role, own)
	entries = evaluation.ApplyAutomaticRatings(dc.sections, goals, role, entries)
	if err := evaluation.ValidateEntries(dc.sections, goals, role, entries); err != nil {
		return SubmitResult{}, err
	}

	var next evaluation.Task
	if outcome.Advance {
		n, ok, err := dc.flow.Next(status)
		if err != nil {
			return SubmitResult{}, err
		}
		if !ok {
			return SubmitResult{}, &evaluation.WorkflowError{Status: status, Role: role, Err: evaluation.ErrNoNextStep}
		}
		next = n
	}

	err = s.store.InTx(ctx, func(w Writer) error {
		current, err := w.LockEmployeeDocumentStatus(ctx, dc.doc.ID)
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if current != status {
			return &evaluation.WorkflowError{Status: current, Role: role, Err: evaluation.ErrStaleStatus}
		}
		for _, e := range entries {
			if err := w.UpsertEvaluation(ctx, Evaluation{
				EmployeeDocumentID:    dc.doc.ID,
				SectionID:             e.SectionID,
				GoalID:                e.GoalID,
				EvaluatorPersonNumber: actor.PersonNumber,
				EvaluatorRole:         role,
				Rating:                e.Rating,
				Comment:               strings.TrimSpace(e.Comment),
			}); err != nil {
				return fmt.Errorf("upsert evaluation: %w", err)
			}
		}
		if outcome.MarkCompleted && own != nil {
			if err := w.SetMappingCompleted(ctx, own.ID, true); err != nil {
				return fmt.Errorf("complete mapping: %w", err)
			}
		}
		if outcome.Advance {
			ok, err := w.UpdateEmployeeDocumentStatus(ctx, dc.doc.ID, status, next)
			if err != nil {
				return fmt.Errorf("advance document: %w", err)
			}
			if !ok {
				return &evaluation.WorkflowError{Status: status, Role: role, Err: evaluation.ErrStaleStatus}
			}
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{Role: role, Status: status, Advanced: outcome.Advance, Completed: outcome.MarkCompleted}
	if outcome.Advance {
		result.Status = next
	}
	s.afterSubmit(ctx, actor, dc, result)
	return result, nil
}

func (s *Service) afterSubmit(ctx context.Context, actor Actor, dc documentContext, result SubmitResult) {
	s.record(ctx, actor, audit.ActionSubmit, EntityEmployeeDocument, dc.doc.ID, map[string]any{
		"role":      result.Role,
		"from":      dc.doc.Status,
		"to":        result.Status,
		"advanced":  result.Advanced,
		"completed": result.Completed,
	})
	if s.Metrics != nil {
		s.Metrics.RecordSubmission(result.Advanced)
	}
	if !result.Advanced {
		return
	}
	s.notifyAdvanced(ctx, dc.perf, dc.doc.EmployeePersonNumber, dc.mappings, result.Status)
}

func (s *Service) notifyAdvanced(ctx context.Context, perf PerformanceDocument, employee string, mappings []evaluation.AppraiserMapping, status evaluation.Task) {
	body := fmt.Sprintf("%s moved to %s.", perf.Name, status)
	s.notify(ctx, employee, notifications.TypeDocumentAdvanced, "Performance review updated", body)
	if status != evaluation.TaskManagerEvaluation {
		return
	}
	for _, m := range mappings {
		s.notify(ctx, m.AppraiserPersonNumber, notifications.TypeEvaluationShared, "Evaluation ready for review",
			fmt.Sprintf("%s of %s is waiting for your evaluation.", perf.Name, employee))
	}
}

// Access returns the caller's view of an employee document: read-only gate, per-section
// permissions, the caller's own entries and the counterpart entries they may see.
func (s *Service) Access(ctx context.Context, actor Actor, employeeDocumentID string) (DocumentAccess, error) {
	dc, err := s.loadDocumentContext(ctx, employeeDocumentID)
	if err != nil {
		return DocumentAccess{}, err
	}
	role, own, _, err := dc.actingRole(actor)
	if err != nil {
		return DocumentAccess{}, err
	}
	stored, err := s.store.ListEvaluations(ctx, dc.doc.ID)
	if err != nil {
		return DocumentAccess{}, err
	}

	goals := dc.scopedGoals(role, own)
	scope := evaluation.NewGoalTypeSet(evaluation.GoalTypeWork, evaluation.GoalTypeHome)
	if role.IsAppraiser() && own != nil {
		scope = own.EvalGoalTypes
	}

	out := DocumentAccess{
		Document:      dc.doc,
		Role:          role,
		ReadOnly:      evaluation.IsReadOnly(dc.doc.Status, role, own),
		EvalGoalTypes: scope,
		Goals:         goals,
		Appraisers:    dc.mappings,
	}
	for _, section := range dc.sections {
		if !evaluation.CanView(section, role) {
			continue
		}
		perm, _ := section.Permission(role)
		view := SectionAccess{
			SectionID:    section.ID,
			Name:         section.Name,
			Type:         section.Type,
			CanView:      true,
			CanEdit:      evaluation.CanEdit(section, role),
			Permission:   perm.Basic(),
			VisibleRoles: evaluation.VisibleCounterpartRoles(section, role),
		}
		visible := map[evaluation.Role]bool{}
		for _, r := range view.VisibleRoles {
			visible[r] = true
		}
		for _, e := range stored {
			if e.SectionID != section.ID {
				continue
			}
			switch {
			case e.EvaluatorPersonNumber == actor.PersonNumber:
				view.OwnEvaluations = append(view.OwnEvaluations, e)
			case visible[e.EvaluatorRole]:
				view.CounterpartValues = append(view.CounterpartValues, e)
			}
		}
		if section.IsAutomatic() {
			ratings := map[string]float64{}
			for _, e := range view.OwnEvaluations {
				if e.GoalID != "" && e.Rating != nil {
					ratings[e.GoalID] = *e.Rating
				}
			}
			if len(ratings) > 0 {
				computed := evaluation.ComputeAutomaticRating(goals, ratings)
				view.ComputedRating = &computed
			}
		}
		out.Sections = append(out.Sections, view)
	}
	return out, nil
}
