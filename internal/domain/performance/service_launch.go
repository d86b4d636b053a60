package performance

import (
	"context"
	"errors"
	"fmt"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/requestctx"
)

// launchPlan holds every write of a launch. It is computed in full before the batch starts.
type launchPlan struct {
	documents []EmployeeDocument
	mappings  []evaluation.AppraiserMapping
	warnings  []evaluation.Warning
}

type launchInputs struct {
	document    PerformanceDocument
	flow        evaluation.EvaluationFlow
	eligibility evaluation.Eligibility
	initial     evaluation.Task
	weights     map[string]evaluation.TechnologistWeight
	existing    []evaluation.AppraiserMapping
}

func (s *Service) loadLaunchInputs(ctx context.Context, documentID string) (launchInputs, error) {
	var in launchInputs
	doc, err := s.store.GetPerformanceDocument(ctx, documentID)
	if err != nil {
		return in, err
	}
	subject := "performance document " + doc.Name
	if doc.FlowID == "" {
		return in, &evaluation.ConfigError{Subject: subject, Err: ErrMissingFlow}
	}
	if doc.EligibilityID == "" {
		return in, &evaluation.ConfigError{Subject: subject, Err: ErrMissingEligibility}
	}
	flow, err := s.store.GetFlow(ctx, doc.FlowID)
	if errors.Is(err, ErrNotFound) {
		return in, &evaluation.ConfigError{Subject: subject, Err: ErrMissingFlow}
	}
	if err != nil {
		return in, err
	}
	initial, err := flow.InitialStatus()
	if err != nil {
		return in, err
	}
	eligibility, err := s.store.GetEligibility(ctx, doc.EligibilityID)
	if errors.Is(err, ErrNotFound) {
		return in, &evaluation.ConfigError{Subject: subject, Err: ErrMissingEligibility}
	}
	if err != nil {
		return in, err
	}
	weights, err := s.store.TechnologistWeights(ctx)
	if err != nil {
		return in, err
	}
	existing, err := s.store.ListAppraiserMappings(ctx, MappingFilter{PerformanceCycleID: doc.PerformanceCycleID})
	if err != nil {
		return in, err
	}
	return launchInputs{
		document:    doc,
		flow:        flow,
		eligibility: eligibility,
		initial:     initial,
		weights:     weights,
		existing:    existing,
	}, nil
}

// planEmployees builds one document per employee plus the resolved appraiser mappings.
// A missing weight configuration only costs that employee its appraisers.
func (s *Service) planEmployees(in launchInputs, employees []evaluation.Employee) launchPlan {
	var plan launchPlan
	existing := in.existing
	for _, emp := range employees {
		plan.documents = append(plan.documents, EmployeeDocument{
			ID:                    s.NewID(),
			PerformanceDocumentID: in.document.ID,
			PerformanceCycleID:    in.document.PerformanceCycleID,
			EmployeePersonNumber:  emp.PersonNumber,
			Status:                in.initial,
		})

		res, err := evaluation.ResolveAppraisers(emp, in.document.PerformanceCycleID, in.weights)
		if err != nil {
			plan.warnings = append(plan.warnings, evaluation.Warning{PersonNumber: emp.PersonNumber, Message: err.Error()})
			continue
		}
		plan.warnings = append(plan.warnings, res.Warnings...)

		kept, dropped := evaluation.DropDuplicateAppraisers(res.Mappings(), existing)
		plan.warnings = append(plan.warnings, dropped...)
		for _, m := range kept {
			m.ID = s.NewID()
			plan.mappings = append(plan.mappings, m)
			existing = append(existing, m)
		}
	}
	return plan
}

func applyPlan(ctx context.Context, w Writer, plan launchPlan) error {
	if err := w.CreateLaunchRows(ctx, plan.documents, plan.mappings); err != nil {
		return fmt.Errorf("create launch rows: %w", err)
	}
	return nil
}

// Launch creates the employee documents and appraiser mappings of a performance document and
// marks it launched, all in one batch.
func (s *Service) Launch(ctx context.Context, actor Actor, documentID string) (LaunchResult, error) {
	in, err := s.loadLaunchInputs(ctx, documentID)
	if err != nil {
		return LaunchResult{}, err
	}
	if in.document.IsLaunched {
		return LaunchResult{}, &evaluation.ConfigError{Subject: "performance document " + in.document.Name, Err: ErrAlreadyLaunched}
	}

	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return LaunchResult{}, err
	}
	eligible := evaluation.FilterEligible(employees, in.eligibility)
	if len(eligible) == 0 {
		return LaunchResult{}, ErrNoEligible
	}

	plan := s.planEmployees(in, eligible)
	err = s.store.InTx(ctx, func(w Writer) error {
		launched, err := w.MarkDocumentLaunched(ctx, in.document.ID)
		if err != nil {
			return err
		}
		if !launched {
			return &evaluation.ConfigError{Subject: "performance document " + in.document.Name, Err: ErrAlreadyLaunched}
		}
		return applyPlan(ctx, w, plan)
	})
	if err != nil {
		return LaunchResult{}, err
	}

	result := LaunchResult{
		DocumentsCreated: len(plan.documents),
		MappingsCreated:  len(plan.mappings),
		InitialStatus:    in.initial,
		Warnings:         plan.warnings,
	}
	s.afterLaunch(ctx, actor, audit.ActionLaunch, in.document, plan, result)
	return result, nil
}

// AddEmployee launches a single employee into an already launched performance document.
func (s *Service) AddEmployee(ctx context.Context, actor Actor, documentID, personNumber string) (LaunchResult, error) {
	in, err := s.loadLaunchInputs(ctx, documentID)
	if err != nil {
		return LaunchResult{}, err
	}
	if !in.document.IsLaunched {
		return LaunchResult{}, ErrNotLaunched
	}

	emp, err := s.store.GetEmployee(ctx, personNumber)
	if err != nil {
		return LaunchResult{}, err
	}
	if !evaluation.IsEligible(emp, in.eligibility) {
		return LaunchResult{}, &evaluation.ValidationError{Issues: []evaluation.Issue{{Field: "personNumber", Reason: "employee is excluded by the eligibility rules"}}}
	}
	held, err := s.store.ListEmployeeDocuments(ctx, DocumentFilter{PerformanceDocumentID: documentID, EmployeePersonNumber: personNumber})
	if err != nil {
		return LaunchResult{}, err
	}
	if len(held) > 0 {
		return LaunchResult{}, ErrAlreadyAssigned
	}

	plan := s.planEmployees(in, []evaluation.Employee{emp})
	if err := s.store.InTx(ctx, func(w Writer) error { return applyPlan(ctx, w, plan) }); err != nil {
		return LaunchResult{}, err
	}

	result := LaunchResult{
		DocumentsCreated: len(plan.documents),
		MappingsCreated:  len(plan.mappings),
		InitialStatus:    in.initial,
		Warnings:         plan.warnings,
	}
	s.afterLaunch(ctx, actor, audit.ActionAddEmployee, in.document, plan, result)
	return result, nil
}

func (s *Service) afterLaunch(ctx context.Context, actor Actor, action string, doc PerformanceDocument, plan launchPlan, result LaunchResult) {
	for _, warning := range plan.warnings {
		requestctx.Logger(ctx).Warn("appraiser resolution warning", "documentId", doc.ID, "personNumber", warning.PersonNumber, "warning", warning.Message)
		s.record(ctx, actor, audit.ActionLaunchWarning, EntityPerformanceDocument, doc.ID, warning)
	}
	s.record(ctx, actor, action, EntityPerformanceDocument, doc.ID, result)
	if s.Metrics != nil {
		s.Metrics.RecordLaunch()
	}
	for _, d := range plan.documents {
		s.notify(ctx, d.EmployeePersonNumber, notifications.TypeReviewAssigned, "Performance review assigned",
			fmt.Sprintf("%s is open. Current step: %s.", doc.Name, d.Status))
	}
	for _, m := range plan.mappings {
		s.notify(ctx, m.AppraiserPersonNumber, notifications.TypeAppraiserAssigned, "Appraiser assignment",
			fmt.Sprintf("You are %s appraiser of %s for %s (%s goals).", m.AppraiserType, m.EmployeePersonNumber, doc.Name, m.EvalGoalTypes))
	}
}
