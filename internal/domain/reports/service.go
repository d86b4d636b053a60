package reports

import (
	"context"
	"errors"
	"strings"

	"appraisal/internal/domain/evaluation"
)

var ErrCycleRequired = errors.New("performance cycle id is required")

type StatusCount struct {
	Status evaluation.Task `json:"status"`
	Count  int             `json:"count"`
}

// CycleProgress is the HR view of how far a cycle has moved through its flows.
type CycleProgress struct {
	PerformanceCycleID         string        `json:"performanceCycleId"`
	Documents                  int           `json:"documents"`
	ByStatus                   []StatusCount `json:"byStatus"`
	AppraisalsPending          int           `json:"appraisalsPending"`
	AppraisalsCompleted        int           `json:"appraisalsCompleted"`
	EmployeesWithoutAppraisers int           `json:"employeesWithoutAppraisers"`
}

// PersonalDashboard counts the work waiting on one person.
type PersonalDashboard struct {
	OwnDocuments        []StatusCount `json:"ownDocuments"`
	AppraisalsPending   int           `json:"appraisalsPending"`
	UnreadNotifications int           `json:"unreadNotifications"`
}

type StoreAPI interface {
	StatusCounts(ctx context.Context, cycleID string) (map[evaluation.Task]int, error)
	MappingCompletion(ctx context.Context, cycleID string) (pending, completed int, err error)
	DocumentsWithoutAppraisers(ctx context.Context, cycleID string) (int, error)
	OwnStatusCounts(ctx context.Context, personNumber string) (map[evaluation.Task]int, error)
	PendingAppraisals(ctx context.Context, personNumber string) (int, error)
	UnreadNotifications(ctx context.Context, personNumber string) (int, error)
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) CycleProgress(ctx context.Context, cycleID string) (CycleProgress, error) {
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return CycleProgress{}, ErrCycleRequired
	}
	counts, err := s.store.StatusCounts(ctx, cycleID)
	if err != nil {
		return CycleProgress{}, err
	}
	pending, completed, err := s.store.MappingCompletion(ctx, cycleID)
	if err != nil {
		return CycleProgress{}, err
	}
	orphans, err := s.store.DocumentsWithoutAppraisers(ctx, cycleID)
	if err != nil {
		return CycleProgress{}, err
	}

	out := CycleProgress{
		PerformanceCycleID:         cycleID,
		ByStatus:                   ordered(counts),
		AppraisalsPending:          pending,
		AppraisalsCompleted:        completed,
		EmployeesWithoutAppraisers: orphans,
	}
	for _, c := range out.ByStatus {
		out.Documents += c.Count
	}
	return out, nil
}

func (s *Service) Dashboard(ctx context.Context, personNumber string) (PersonalDashboard, error) {
	own, err := s.store.OwnStatusCounts(ctx, personNumber)
	if err != nil {
		return PersonalDashboard{}, err
	}
	pending, err := s.store.PendingAppraisals(ctx, personNumber)
	if err != nil {
		return PersonalDashboard{}, err
	}
	unread, err := s.store.UnreadNotifications(ctx, personNumber)
	if err != nil {
		return PersonalDashboard{}, err
	}
	return PersonalDashboard{OwnDocuments: ordered(own), AppraisalsPending: pending, UnreadNotifications: unread}, nil
}

// ordered lists every task in flow order, zero counts included.
func ordered(counts map[evaluation.Task]int) []StatusCount {
	out := make([]StatusCount, 0, len(evaluation.Tasks))
	for _, t := range evaluation.Tasks {
		out = append(out, StatusCount{Status: t, Count: counts[t]})
	}
	return out
}
