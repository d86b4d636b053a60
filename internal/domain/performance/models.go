package performance

import (
	"time"

	"appraisal/internal/domain/evaluation"
)

type ReviewPeriod struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

type PerformanceCycle struct {
	ID             string    `json:"id"`
	ReviewPeriodID string    `json:"reviewPeriodId"`
	Name           string    `json:"name"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
}

type GoalPlan struct {
	ID             string `json:"id"`
	ReviewPeriodID string `json:"reviewPeriodId"`
	Name           string `json:"name"`
}

type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PerformanceDocument binds the reference graph an HR admin launches for a cycle.
type PerformanceDocument struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	ReviewPeriodID     string    `json:"reviewPeriodId"`
	PerformanceCycleID string    `json:"performanceCycleId"`
	GoalPlanID         string    `json:"goalPlanId"`
	TemplateID         string    `json:"templateId"`
	FlowID             string    `json:"flowId"`
	EligibilityID      string    `json:"eligibilityId"`
	SectionIDs         []string  `json:"sectionIds"`
	IsLaunched         bool      `json:"isLaunched"`
	CreatedAt          time.Time `json:"createdAt"`
}

// EmployeeDocument is one employee's instance of a launched performance document.
type EmployeeDocument struct {
	ID                    string          `json:"id"`
	PerformanceDocumentID string          `json:"performanceDocumentId"`
	PerformanceCycleID    string          `json:"performanceCycleId"`
	EmployeePersonNumber  string          `json:"employeePersonNumber"`
	Status                evaluation.Task `json:"status"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// Evaluation is one stored rating/comment row. GoalID empty means section level.
type Evaluation struct {
	EmployeeDocumentID    string          `json:"employeeDocumentId"`
	SectionID             string          `json:"sectionId"`
	GoalID                string          `json:"goalId,omitempty"`
	EvaluatorPersonNumber string          `json:"evaluatorPersonNumber"`
	EvaluatorRole         evaluation.Role `json:"evaluatorRole"`
	Rating                *float64        `json:"rating,omitempty"`
	Comment               string          `json:"comment,omitempty"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID       string
	PersonNumber string
	HR           bool
	RequestID    string
}

type DocumentFilter struct {
	PerformanceDocumentID string
	PerformanceCycleID    string
	EmployeePersonNumber  string
	Status                evaluation.Task
	IDs                   []string
}

type MappingFilter struct {
	PerformanceCycleID    string
	EmployeePersonNumber  string
	AppraiserPersonNumber string
}

type LaunchResult struct {
	DocumentsCreated int                  `json:"documentsCreated"`
	MappingsCreated  int                  `json:"mappingsCreated"`
	InitialStatus    evaluation.Task      `json:"initialStatus"`
	Warnings         []evaluation.Warning `json:"warnings"`
}

type SubmitResult struct {
	Role      evaluation.Role `json:"role"`
	Status    evaluation.Task `json:"status"`
	Advanced  bool            `json:"advanced"`
	Completed bool            `json:"completed"`
}

type PromoteResult struct {
	From     evaluation.Task `json:"from"`
	To       evaluation.Task `json:"to"`
	Promoted int             `json:"promoted"`
}

type ImportResult struct {
	Groups   int `json:"groups"`
	Mappings int `json:"mappings"`
}

// SectionAccess is the caller's view of one section of an employee document.
type SectionAccess struct {
	SectionID         string                     `json:"sectionId"`
	Name              string                     `json:"name"`
	Type              evaluation.SectionType     `json:"type"`
	CanView           bool                       `json:"canView"`
	CanEdit           bool                       `json:"canEdit"`
	Permission        evaluation.BasicPermission `json:"permission"`
	VisibleRoles      []evaluation.Role          `json:"visibleRoles"`
	ComputedRating    *int                       `json:"computedRating,omitempty"`
	OwnEvaluations    []Evaluation               `json:"ownEvaluations"`
	CounterpartValues []Evaluation               `json:"counterpartEvaluations"`
}

type DocumentAccess struct {
	Document      EmployeeDocument              `json:"document"`
	Role          evaluation.Role               `json:"role"`
	ReadOnly      bool                          `json:"readOnly"`
	EvalGoalTypes evaluation.GoalTypeSet        `json:"evalGoalTypes"`
	Goals         []evaluation.Goal             `json:"goals"`
	Sections      []SectionAccess               `json:"sections"`
	Appraisers    []evaluation.AppraiserMapping `json:"appraisers"`
}
