package performance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/lov"
)

const (
	testCycle    = "C1"
	testDocument = "PD1"
)

var hrActor = Actor{UserID: "u-hr", PersonNumber: "H1", HR: true, RequestID: "req-1"}

func weight(v float64) *float64 { return &v }

func rating(v float64) *float64 { return &v }

type fixture struct {
	svc      *Service
	store    *memStore
	audit    *fakeAudit
	notifier *fakeNotifier
}

func testValues() lov.Values {
	return lov.Values{
		PersonTypes:       []string{"Employee", "Contractor"},
		Departments:       []string{"Engineering", "Sales"},
		TechnologistTypes: []string{"JUNIOR", "SENIOR"},
		GoalStatuses:      []string{"active", "completed"},
	}
}

// newFixture seeds a cycle with a three step flow, a Sales exclusion and four employees:
// E1 with distinct managers, E2 whose managers collapse, E3 in Sales and E4 without a
// weight configuration.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	st := store.state

	st.flows["F1"] = evaluation.EvaluationFlow{ID: "F1", Name: "Standard", Steps: []evaluation.EvaluationStep{
		{Sequence: 1, Task: evaluation.TaskWorkerSelfEvaluation, Role: evaluation.RoleWorker},
		{Sequence: 2, Task: evaluation.TaskManagerEvaluation, Role: evaluation.RolePrimaryAppraiser},
		{Sequence: 3, Task: evaluation.TaskCloseDocument, Role: evaluation.RoleHR},
	}}
	st.eligibilities["EL1"] = evaluation.Eligibility{ID: "EL1", Name: "No sales", Rules: []evaluation.ExclusionRule{
		{Type: evaluation.RuleDepartment, Values: []string{"Sales"}},
	}}
	st.weights["JUNIOR"] = evaluation.TechnologistWeight{
		TechnologistType: "JUNIOR", WorkGoalWeight: 70, HomeGoalWeight: 30,
		PrimaryAppraiser: evaluation.WorkManager, SecondaryAppraiser: evaluation.HomeManager,
	}
	for _, emp := range []evaluation.Employee{
		{PersonNumber: "E1", Name: "Ada", Department: "Engineering", TechnologistType: "JUNIOR", WorkManager: "M1", HomeManager: "M2"},
		{PersonNumber: "E2", Name: "Bo", Department: "Engineering", TechnologistType: "JUNIOR", WorkManager: "M1", HomeManager: "M1"},
		{PersonNumber: "E3", Name: "Cy", Department: "Sales", TechnologistType: "JUNIOR", WorkManager: "M1", HomeManager: "M2"},
		{PersonNumber: "E4", Name: "Di", Department: "Engineering", TechnologistType: "INTERN", WorkManager: "M1", HomeManager: "M2"},
	} {
		st.employees[emp.PersonNumber] = emp
	}

	st.sections["S1"] = evaluation.Section{
		ID: "S1", TemplateID: "T1", Name: "Goals", Order: 1, Type: evaluation.SectionPerformanceGoals,
		RatingEnabled: true, ItemRatingMandatory: true, RatingCalculationMethod: evaluation.CalculationAutomatic,
		Permissions: []evaluation.AccessPermission{
			{Role: evaluation.RoleWorker, Rate: true},
			{Role: evaluation.RolePrimaryAppraiser, Rate: true, ViewWorkerRatings: true, ViewSecondaryAppraiserRatings: true},
			{Role: evaluation.RoleSecondaryAppraiser, Rate: true},
			{Role: evaluation.RoleHR, View: true},
		},
	}
	st.sections["S2"] = evaluation.Section{
		ID: "S2", TemplateID: "T1", Name: "Summary", Order: 2, Type: evaluation.SectionOverallSummary,
		CommentEnabled: true, SectionCommentMandatory: true, MinCommentLength: 5,
		Permissions: []evaluation.AccessPermission{
			{Role: evaluation.RoleWorker, Rate: true},
			{Role: evaluation.RolePrimaryAppraiser, Rate: true},
			{Role: evaluation.RoleSecondaryAppraiser, View: true},
		},
	}
	st.goals["G1"] = evaluation.Goal{ID: "G1", GoalPlanID: "GP1", Name: "Ship", Type: evaluation.GoalTypeWork, TechnologistType: "JUNIOR", Weight: weight(60)}
	st.goals["G2"] = evaluation.Goal{ID: "G2", GoalPlanID: "GP1", Name: "Mentor", Type: evaluation.GoalTypeHome, TechnologistType: "JUNIOR", Weight: weight(40)}
	st.goals["G3"] = evaluation.Goal{ID: "G3", GoalPlanID: "GP1", Name: "Architect", Type: evaluation.GoalTypeWork, TechnologistType: "SENIOR", Weight: weight(100)}

	st.perfDocs[testDocument] = PerformanceDocument{
		ID: testDocument, Name: "FY26 Review", PerformanceCycleID: testCycle, GoalPlanID: "GP1",
		TemplateID: "T1", FlowID: "F1", EligibilityID: "EL1", SectionIDs: []string{"S1", "S2"},
	}

	svc := NewService(store, store, testValues())
	n := 0
	svc.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	f := &fixture{svc: svc, store: store, audit: &fakeAudit{}, notifier: &fakeNotifier{}}
	svc.Audit = f.audit
	svc.Notify = f.notifier
	return f
}

// launched returns a fixture whose document has been launched, keyed by employee.
func launched(t *testing.T) (*fixture, map[string]string) {
	t.Helper()
	f := newFixture(t)
	if _, err := f.svc.Launch(context.Background(), hrActor, testDocument); err != nil {
		t.Fatalf("launch: %v", err)
	}
	docs := map[string]string{}
	for _, d := range f.store.state.docs {
		docs[d.EmployeePersonNumber] = d.ID
	}
	return f, docs
}

func (f *fixture) mappingsOf(employee string) []evaluation.AppraiserMapping {
	out, _ := f.store.ListAppraiserMappings(context.Background(), MappingFilter{EmployeePersonNumber: employee})
	return out
}

func TestLaunchCreatesDocumentsAndMappings(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Launch(context.Background(), hrActor, testDocument)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if res.DocumentsCreated != 3 || res.MappingsCreated != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if res.InitialStatus != evaluation.TaskWorkerSelfEvaluation {
		t.Fatalf("unexpected initial status %q", res.InitialStatus)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].PersonNumber != "E4" {
		t.Fatalf("expected one warning for E4, got %+v", res.Warnings)
	}
	if !f.store.state.perfDocs[testDocument].IsLaunched {
		t.Fatalf("document not marked launched")
	}
	for _, d := range f.store.state.docs {
		if d.EmployeePersonNumber == "E3" {
			t.Fatalf("excluded employee received a document")
		}
		if d.Status != evaluation.TaskWorkerSelfEvaluation {
			t.Fatalf("document %s has status %q", d.ID, d.Status)
		}
	}

	e1 := f.mappingsOf("E1")
	if len(e1) != 2 {
		t.Fatalf("expected two appraisers for E1, got %+v", e1)
	}
	for _, m := range e1 {
		switch m.AppraiserPersonNumber {
		case "M1":
			if m.AppraiserType != evaluation.AppraiserPrimary || m.EvalGoalTypes.String() != "Work" {
				t.Fatalf("unexpected primary %+v", m)
			}
		case "M2":
			if m.AppraiserType != evaluation.AppraiserSecondary || m.EvalGoalTypes.String() != "Home" {
				t.Fatalf("unexpected secondary %+v", m)
			}
		default:
			t.Fatalf("unexpected appraiser %+v", m)
		}
		if m.ID == "" || m.IsCompleted {
			t.Fatalf("mapping not initialised %+v", m)
		}
	}

	e2 := f.mappingsOf("E2")
	if len(e2) != 1 || e2[0].AppraiserType != evaluation.AppraiserPrimary || e2[0].EvalGoalTypes.String() != "Work,Home" {
		t.Fatalf("expected one collapsed primary for E2, got %+v", e2)
	}
	if got := f.mappingsOf("E4"); len(got) != 0 {
		t.Fatalf("expected no appraisers for unconfigured E4, got %+v", got)
	}

	if f.audit.count(audit.ActionLaunch) != 1 || f.audit.count(audit.ActionLaunchWarning) != 1 {
		t.Fatalf("unexpected audit events %+v", f.audit.events)
	}
	if !f.notifier.has("E1", notifications.TypeReviewAssigned) || !f.notifier.has("M2", notifications.TypeAppraiserAssigned) {
		t.Fatalf("missing notifications %v", f.notifier.sent)
	}
}

func TestLaunchTwiceIsConfigError(t *testing.T) {
	f, _ := launched(t)
	_, err := f.svc.Launch(context.Background(), hrActor, testDocument)
	var cfg *evaluation.ConfigError
	if !errors.As(err, &cfg) || !errors.Is(err, ErrAlreadyLaunched) {
		t.Fatalf("expected already launched config error, got %v", err)
	}
	if len(f.store.state.docs) != 3 {
		t.Fatalf("second launch wrote documents")
	}
}

func TestLaunchWithNoEligibleEmployees(t *testing.T) {
	f := newFixture(t)
	f.store.state.eligibilities["EL1"] = evaluation.Eligibility{ID: "EL1", Name: "Nobody", Rules: []evaluation.ExclusionRule{
		{Type: evaluation.RuleDepartment, Values: []string{"Engineering", "Sales"}},
	}}
	if _, err := f.svc.Launch(context.Background(), hrActor, testDocument); !errors.Is(err, ErrNoEligible) {
		t.Fatalf("expected ErrNoEligible, got %v", err)
	}
	if f.store.txCount != 0 || f.store.state.perfDocs[testDocument].IsLaunched {
		t.Fatalf("launch without eligible employees must not write")
	}
}

func TestLaunchRequiresFlowAndEligibility(t *testing.T) {
	f := newFixture(t)
	f.store.state.flows["F1"] = evaluation.EvaluationFlow{ID: "F1", Name: "Empty"}
	_, err := f.svc.Launch(context.Background(), hrActor, testDocument)
	if !errors.Is(err, evaluation.ErrEmptyFlow) {
		t.Fatalf("expected empty flow error, got %v", err)
	}

	f = newFixture(t)
	delete(f.store.state.eligibilities, "EL1")
	_, err = f.svc.Launch(context.Background(), hrActor, testDocument)
	var cfg *evaluation.ConfigError
	if !errors.As(err, &cfg) || !errors.Is(err, ErrMissingEligibility) {
		t.Fatalf("expected missing eligibility config error, got %v", err)
	}
}

func TestLaunchIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.store.failOnWrite = 5
	if _, err := f.svc.Launch(context.Background(), hrActor, testDocument); !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	st := f.store.state
	if len(st.docs) != 0 || len(st.mappings) != 0 || st.perfDocs[testDocument].IsLaunched {
		t.Fatalf("failed launch left writes behind: docs=%d mappings=%d", len(st.docs), len(st.mappings))
	}
	if f.audit.count(audit.ActionLaunch) != 0 {
		t.Fatalf("failed launch was audited")
	}

	f.store.failOnWrite = 0
	if _, err := f.svc.Launch(context.Background(), hrActor, testDocument); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestLaunchSkipsAppraiserAlreadyMapped(t *testing.T) {
	f := newFixture(t)
	f.store.state.mappings["pre"] = evaluation.AppraiserMapping{
		ID: "pre", EmployeePersonNumber: "E1", PerformanceCycleID: testCycle, AppraiserPersonNumber: "M2",
		AppraiserType: evaluation.AppraiserSecondary, EvalGoalTypes: evaluation.NewGoalTypeSet(evaluation.GoalTypeHome),
	}
	res, err := f.svc.Launch(context.Background(), hrActor, testDocument)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if res.MappingsCreated != 2 || len(res.Warnings) != 2 {
		t.Fatalf("expected duplicate to be skipped with a warning, got %+v", res)
	}
	if got := f.mappingsOf("E1"); len(got) != 2 {
		t.Fatalf("expected existing plus primary for E1, got %+v", got)
	}
}

func TestAddEmployee(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	if _, err := f.svc.AddEmployee(ctx, hrActor, testDocument, "E1"); !errors.Is(err, ErrNotLaunched) {
		t.Fatalf("expected ErrNotLaunched, got %v", err)
	}

	f, _ = launched(t)
	f.store.state.employees["E5"] = evaluation.Employee{PersonNumber: "E5", Department: "Engineering", TechnologistType: "JUNIOR", WorkManager: "M3", HomeManager: "M4"}
	res, err := f.svc.AddEmployee(ctx, hrActor, testDocument, "E5")
	if err != nil {
		t.Fatalf("add employee: %v", err)
	}
	if res.DocumentsCreated != 1 || res.MappingsCreated != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := f.svc.AddEmployee(ctx, hrActor, testDocument, "E5"); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
	var verr *evaluation.ValidationError
	if _, err := f.svc.AddEmployee(ctx, hrActor, testDocument, "E3"); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for excluded employee, got %v", err)
	}
	if _, err := f.svc.AddEmployee(ctx, hrActor, testDocument, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.audit.count(audit.ActionAddEmployee) != 1 {
		t.Fatalf("add employee not audited")
	}
}
