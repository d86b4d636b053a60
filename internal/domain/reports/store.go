package reports

import (
	"context"

	"appraisal/internal/domain/evaluation"
	"appraisal/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) countByStatus(ctx context.Context, sql string, arg string) (map[evaluation.Task]int, error) {
	rows, err := s.DB.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[evaluation.Task]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[evaluation.Task(status)] = count
	}
	return out, rows.Err()
}

func (s *Store) StatusCounts(ctx context.Context, cycleID string) (map[evaluation.Task]int, error) {
	return s.countByStatus(ctx, `
    SELECT status, COUNT(1) FROM employee_documents
    WHERE performance_cycle_id = $1
    GROUP BY status
  `, cycleID)
}

func (s *Store) OwnStatusCounts(ctx context.Context, personNumber string) (map[evaluation.Task]int, error) {
	return s.countByStatus(ctx, `
    SELECT status, COUNT(1) FROM employee_documents
    WHERE employee_person_number = $1
    GROUP BY status
  `, personNumber)
}

func (s *Store) MappingCompletion(ctx context.Context, cycleID string) (int, int, error) {
	var pending, completed int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FILTER (WHERE NOT is_completed), COUNT(1) FILTER (WHERE is_completed)
    FROM appraiser_mappings
    WHERE performance_cycle_id = $1
  `, cycleID).Scan(&pending, &completed)
	return pending, completed, err
}

func (s *Store) DocumentsWithoutAppraisers(ctx context.Context, cycleID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employee_documents d
    WHERE d.performance_cycle_id = $1
      AND NOT EXISTS (
        SELECT 1 FROM appraiser_mappings m
        WHERE m.performance_cycle_id = d.performance_cycle_id
          AND m.employee_person_number = d.employee_person_number
      )
  `, cycleID).Scan(&count)
	return count, err
}

// PendingAppraisals counts open documents where the person still owes an appraisal.
func (s *Store) PendingAppraisals(ctx context.Context, personNumber string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM appraiser_mappings m
    JOIN employee_documents d
      ON d.performance_cycle_id = m.performance_cycle_id
     AND d.employee_person_number = m.employee_person_number
    WHERE m.appraiser_person_number = $1
      AND NOT m.is_completed
      AND d.status = $2
  `, personNumber, string(evaluation.TaskManagerEvaluation)).Scan(&count)
	return count, err
}

func (s *Store) UnreadNotifications(ctx context.Context, personNumber string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications WHERE person_number = $1 AND read_at IS NULL
  `, personNumber).Scan(&count)
	return count, err
}
