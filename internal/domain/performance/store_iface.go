package performance

import (
	"context"

	"appraisal/internal/domain/evaluation"
)

// StoreAPI is the read side plus the atomic batch entry point used by the engine.
type StoreAPI interface {
	GetPerformanceDocument(ctx context.Context, id string) (PerformanceDocument, error)
	GetFlow(ctx context.Context, id string) (evaluation.EvaluationFlow, error)
	GetEligibility(ctx context.Context, id string) (evaluation.Eligibility, error)
	ListEmployees(ctx context.Context) ([]evaluation.Employee, error)
	GetEmployee(ctx context.Context, personNumber string) (evaluation.Employee, error)
	TechnologistWeights(ctx context.Context) (map[string]evaluation.TechnologistWeight, error)
	ListEmployeeDocuments(ctx context.Context, filter DocumentFilter) ([]EmployeeDocument, error)
	GetEmployeeDocument(ctx context.Context, id string) (EmployeeDocument, error)
	ListAppraiserMappings(ctx context.Context, filter MappingFilter) ([]evaluation.AppraiserMapping, error)
	ListSections(ctx context.Context, templateID string, ids []string) ([]evaluation.Section, error)
	ListGoals(ctx context.Context, goalPlanID string) ([]evaluation.Goal, error)
	ListEvaluations(ctx context.Context, employeeDocumentID string) ([]Evaluation, error)
	// InTx runs fn against one transaction; any error rolls back every write fn made.
	InTx(ctx context.Context, fn func(Writer) error) error
}

type Writer interface {
	CreateAppraiserMapping(ctx context.Context, mapping evaluation.AppraiserMapping) error
	// CreateLaunchRows inserts documents first, then mappings.
	CreateLaunchRows(ctx context.Context, docs []EmployeeDocument, mappings []evaluation.AppraiserMapping) error
	DeleteAppraiserMappings(ctx context.Context, employeePersonNumber, cycleID string) error
	// MarkDocumentLaunched flips isLaunched once; false means another launch won.
	MarkDocumentLaunched(ctx context.Context, documentID string) (bool, error)
	// LockEmployeeDocumentStatus reads the status and holds the row until the batch ends.
	LockEmployeeDocumentStatus(ctx context.Context, id string) (evaluation.Task, error)
	// UpdateEmployeeDocumentStatus compares and sets; false means the status was not from.
	UpdateEmployeeDocumentStatus(ctx context.Context, id string, from, to evaluation.Task) (bool, error)
	SetMappingCompleted(ctx context.Context, mappingID string, completed bool) error
	UpsertEvaluation(ctx context.Context, e Evaluation) error
}

// ConfigStore persists the admin-authored reference data.
type ConfigStore interface {
	ListReviewPeriods(ctx context.Context) ([]ReviewPeriod, error)
	GetReviewPeriod(ctx context.Context, id string) (ReviewPeriod, error)
	CreateReviewPeriod(ctx context.Context, p ReviewPeriod) (string, error)
	ListCycles(ctx context.Context, reviewPeriodID string) ([]PerformanceCycle, error)
	GetCycle(ctx context.Context, id string) (PerformanceCycle, error)
	CreateCycle(ctx context.Context, c PerformanceCycle) (string, error)
	CreateGoalPlan(ctx context.Context, p GoalPlan) (string, error)
	GetGoalPlan(ctx context.Context, id string) (GoalPlan, error)
	CreateGoal(ctx context.Context, g evaluation.Goal) (string, error)
	CreateTemplate(ctx context.Context, t Template) (string, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
	CreateSection(ctx context.Context, s evaluation.Section) (string, error)
	ReorderSections(ctx context.Context, templateID string, order []string) error
	CreateFlow(ctx context.Context, f evaluation.EvaluationFlow) (string, error)
	CreateEligibility(ctx context.Context, e evaluation.Eligibility) (string, error)
	UpsertTechnologistWeight(ctx context.Context, w evaluation.TechnologistWeight) error
	CreatePerformanceDocument(ctx context.Context, d PerformanceDocument) (string, error)
	// UpdateDocumentSections only touches documents that are not launched.
	UpdateDocumentSections(ctx context.Context, documentID string, sectionIDs []string) (bool, error)
	NameTaken(ctx context.Context, table, name string) (bool, error)
}
