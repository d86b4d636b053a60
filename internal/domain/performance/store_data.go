package performance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"appraisal/internal/domain/evaluation"
	"appraisal/internal/platform/querier"
)

type Store struct {
	DB querier.Beginner
}

func NewStore(db querier.Beginner) *Store {
	return &Store{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) InTx(ctx context.Context, fn func(Writer) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&txWriter{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetPerformanceDocument(ctx context.Context, id string) (PerformanceDocument, error) {
	var d PerformanceDocument
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, name, review_period_id::text, performance_cycle_id::text, goal_plan_id::text,
           template_id::text, COALESCE(flow_id::text, ''), COALESCE(eligibility_id::text, ''),
           section_ids, is_launched, created_at
    FROM performance_documents
    WHERE id::text = $1
  `, id).Scan(&d.ID, &d.Name, &d.ReviewPeriodID, &d.PerformanceCycleID, &d.GoalPlanID,
		&d.TemplateID, &d.FlowID, &d.EligibilityID, &d.SectionIDs, &d.IsLaunched, &d.CreatedAt)
	return d, notFound(err)
}

func (s *Store) GetFlow(ctx context.Context, id string) (evaluation.EvaluationFlow, error) {
	var flow evaluation.EvaluationFlow
	if err := s.DB.QueryRow(ctx, "SELECT id::text, name FROM evaluation_flows WHERE id::text = $1", id).Scan(&flow.ID, &flow.Name); err != nil {
		return flow, notFound(err)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id::text, sequence, task, role
    FROM evaluation_steps
    WHERE flow_id::text = $1
    ORDER BY sequence, id
  `, id)
	if err != nil {
		return flow, err
	}
	defer rows.Close()

	for rows.Next() {
		var step evaluation.EvaluationStep
		var task, role string
		if err := rows.Scan(&step.ID, &step.Sequence, &task, &role); err != nil {
			return flow, err
		}
		step.Task = evaluation.Task(task)
		step.Role = evaluation.Role(role)
		flow.Steps = append(flow.Steps, step)
	}
	return flow, rows.Err()
}

func (s *Store) GetEligibility(ctx context.Context, id string) (evaluation.Eligibility, error) {
	var e evaluation.Eligibility
	if err := s.DB.QueryRow(ctx, "SELECT id::text, name FROM eligibilities WHERE id::text = $1", id).Scan(&e.ID, &e.Name); err != nil {
		return e, notFound(err)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT rule_type, rule_values
    FROM eligibility_rules
    WHERE eligibility_id::text = $1
    ORDER BY id
  `, id)
	if err != nil {
		return e, err
	}
	defer rows.Close()

	for rows.Next() {
		var rule evaluation.ExclusionRule
		var ruleType string
		if err := rows.Scan(&ruleType, &rule.Values); err != nil {
			return e, err
		}
		rule.Type = evaluation.RuleType(ruleType)
		e.Rules = append(e.Rules, rule)
	}
	return e, rows.Err()
}

const employeeColumns = `person_number, name, email, person_type, department, legal_entity, technologist_type, work_manager, home_manager`

func scanEmployee(row pgx.Row) (evaluation.Employee, error) {
	var e evaluation.Employee
	err := row.Scan(&e.PersonNumber, &e.Name, &e.Email, &e.PersonType, &e.Department, &e.LegalEntity,
		&e.TechnologistType, &e.WorkManager, &e.HomeManager)
	return e, err
}

func (s *Store) ListEmployees(ctx context.Context) ([]evaluation.Employee, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY person_number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, personNumber string) (evaluation.Employee, error) {
	e, err := scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE person_number = $1", personNumber))
	return e, notFound(err)
}

func (s *Store) TechnologistWeights(ctx context.Context) (map[string]evaluation.TechnologistWeight, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT technologist_type, work_goal_weight, home_goal_weight, primary_appraiser, secondary_appraiser
    FROM technologist_weights
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]evaluation.TechnologistWeight{}
	for rows.Next() {
		var w evaluation.TechnologistWeight
		var primary, secondary string
		if err := rows.Scan(&w.TechnologistType, &w.WorkGoalWeight, &w.HomeGoalWeight, &primary, &secondary); err != nil {
			return nil, err
		}
		w.PrimaryAppraiser = evaluation.ManagerRole(primary)
		w.SecondaryAppraiser = evaluation.ManagerRole(secondary)
		out[w.TechnologistType] = w
	}
	return out, rows.Err()
}

func buildDocumentQuery(filter DocumentFilter) (string, []any) {
	query := `
    SELECT id::text, performance_document_id::text, performance_cycle_id::text, employee_person_number, status, updated_at
    FROM employee_documents
    WHERE 1=1`
	var args []any
	if filter.PerformanceDocumentID != "" {
		args = append(args, filter.PerformanceDocumentID)
		query += fmt.Sprintf(" AND performance_document_id::text = $%d", len(args))
	}
	if filter.PerformanceCycleID != "" {
		args = append(args, filter.PerformanceCycleID)
		query += fmt.Sprintf(" AND performance_cycle_id::text = $%d", len(args))
	}
	if filter.EmployeePersonNumber != "" {
		args = append(args, filter.EmployeePersonNumber)
		query += fmt.Sprintf(" AND employee_person_number = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		query += fmt.Sprintf(" AND id::text = ANY($%d)", len(args))
	}
	query += " ORDER BY employee_person_number, id"
	return query, args
}

func scanEmployeeDocument(row pgx.Row) (EmployeeDocument, error) {
	var d EmployeeDocument
	var status string
	err := row.Scan(&d.ID, &d.PerformanceDocumentID, &d.PerformanceCycleID, &d.EmployeePersonNumber, &status, &d.UpdatedAt)
	d.Status = evaluation.Task(status)
	return d, err
}

func (s *Store) ListEmployeeDocuments(ctx context.Context, filter DocumentFilter) ([]EmployeeDocument, error) {
	query, args := buildDocumentQuery(filter)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeeDocument
	for rows.Next() {
		d, err := scanEmployeeDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployeeDocument(ctx context.Context, id string) (EmployeeDocument, error) {
	query, args := buildDocumentQuery(DocumentFilter{IDs: []string{id}})
	d, err := scanEmployeeDocument(s.DB.QueryRow(ctx, query, args...))
	return d, notFound(err)
}

func (s *Store) ListAppraiserMappings(ctx context.Context, filter MappingFilter) ([]evaluation.AppraiserMapping, error) {
	query := `
    SELECT id::text, employee_person_number, performance_cycle_id::text, appraiser_person_number,
           appraiser_type, eval_goal_types, is_completed
    FROM appraiser_mappings
    WHERE 1=1`
	var args []any
	if filter.PerformanceCycleID != "" {
		args = append(args, filter.PerformanceCycleID)
		query += fmt.Sprintf(" AND performance_cycle_id::text = $%d", len(args))
	}
	if filter.EmployeePersonNumber != "" {
		args = append(args, filter.EmployeePersonNumber)
		query += fmt.Sprintf(" AND employee_person_number = $%d", len(args))
	}
	if filter.AppraiserPersonNumber != "" {
		args = append(args, filter.AppraiserPersonNumber)
		query += fmt.Sprintf(" AND appraiser_person_number = $%d", len(args))
	}
	query += " ORDER BY employee_person_number, appraiser_type, appraiser_person_number"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.AppraiserMapping
	for rows.Next() {
		var m evaluation.AppraiserMapping
		var kind, goalTypes string
		if err := rows.Scan(&m.ID, &m.EmployeePersonNumber, &m.PerformanceCycleID, &m.AppraiserPersonNumber,
			&kind, &goalTypes, &m.IsCompleted); err != nil {
			return nil, err
		}
		m.AppraiserType = evaluation.AppraiserType(kind)
		set, err := evaluation.ParseGoalTypeSet(goalTypes)
		if err != nil {
			return nil, fmt.Errorf("appraiser mapping %s: %w", m.ID, err)
		}
		m.EvalGoalTypes = set
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListSections(ctx context.Context, templateID string, ids []string) ([]evaluation.Section, error) {
	query := `
    SELECT id::text, template_id::text, name, section_order, type, rating_enabled, section_rating_mandatory,
           item_rating_mandatory, comment_enabled, section_comment_mandatory, item_comment_mandatory,
           min_comment_length, max_comment_length, rating_calculation_method, permissions_json
    FROM template_sections
    WHERE template_id::text = $1`
	args := []any{templateID}
	if len(ids) > 0 {
		args = append(args, ids)
		query += " AND id::text = ANY($2)"
	}
	query += " ORDER BY section_order"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.Section
	for rows.Next() {
		var sec evaluation.Section
		var sectionType, method string
		var permissions []byte
		if err := rows.Scan(&sec.ID, &sec.TemplateID, &sec.Name, &sec.Order, &sectionType, &sec.RatingEnabled,
			&sec.SectionRatingMandatory, &sec.ItemRatingMandatory, &sec.CommentEnabled, &sec.SectionCommentMandatory,
			&sec.ItemCommentMandatory, &sec.MinCommentLength, &sec.MaxCommentLength, &method, &permissions); err != nil {
			return nil, err
		}
		sec.Type = evaluation.SectionType(sectionType)
		sec.RatingCalculationMethod = evaluation.CalculationMethod(method)
		if len(permissions) > 0 {
			if err := json.Unmarshal(permissions, &sec.Permissions); err != nil {
				return nil, fmt.Errorf("section %s permissions: %w", sec.ID, err)
			}
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) ListGoals(ctx context.Context, goalPlanID string) ([]evaluation.Goal, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, goal_plan_id::text, name, type, technologist_type, weight::float8, status
    FROM goals
    WHERE goal_plan_id::text = $1
    ORDER BY type DESC, name
  `, goalPlanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.Goal
	for rows.Next() {
		var g evaluation.Goal
		var goalType string
		if err := rows.Scan(&g.ID, &g.GoalPlanID, &g.Name, &goalType, &g.TechnologistType, &g.Weight, &g.Status); err != nil {
			return nil, err
		}
		g.Type = evaluation.GoalType(goalType)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) ListEvaluations(ctx context.Context, employeeDocumentID string) ([]Evaluation, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_document_id::text, section_id::text, goal_id, evaluator_person_number, evaluator_role,
           rating::float8, comment
    FROM employee_evaluations
    WHERE employee_document_id::text = $1
    ORDER BY section_id, goal_id, evaluator_role
  `, employeeDocumentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var e Evaluation
		var role string
		if err := rows.Scan(&e.EmployeeDocumentID, &e.SectionID, &e.GoalID, &e.EvaluatorPersonNumber, &role, &e.Rating, &e.Comment); err != nil {
			return nil, err
		}
		e.EvaluatorRole = evaluation.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

type txWriter struct {
	tx pgx.Tx
}

const (
	insertEmployeeDocument = `
    INSERT INTO employee_documents (id, performance_document_id, performance_cycle_id, employee_person_number, status)
    VALUES ($1,$2,$3,$4,$5)
  `
	insertAppraiserMapping = `
    INSERT INTO appraiser_mappings
      (id, employee_person_number, performance_cycle_id, appraiser_person_number, appraiser_type, eval_goal_types, is_completed)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `
)

func (w *txWriter) CreateAppraiserMapping(ctx context.Context, m evaluation.AppraiserMapping) error {
	_, err := w.tx.Exec(ctx, insertAppraiserMapping,
		m.ID, m.EmployeePersonNumber, m.PerformanceCycleID, m.AppraiserPersonNumber, string(m.AppraiserType), m.EvalGoalTypes.String(), m.IsCompleted)
	return err
}

func (w *txWriter) CreateLaunchRows(ctx context.Context, docs []EmployeeDocument, mappings []evaluation.AppraiserMapping) error {
	batch := &pgx.Batch{}
	for _, doc := range docs {
		batch.Queue(insertEmployeeDocument,
			doc.ID, doc.PerformanceDocumentID, doc.PerformanceCycleID, doc.EmployeePersonNumber, string(doc.Status))
	}
	for _, m := range mappings {
		batch.Queue(insertAppraiserMapping,
			m.ID, m.EmployeePersonNumber, m.PerformanceCycleID, m.AppraiserPersonNumber, string(m.AppraiserType), m.EvalGoalTypes.String(), m.IsCompleted)
	}
	return w.tx.SendBatch(ctx, batch).Close()
}

func (w *txWriter) DeleteAppraiserMappings(ctx context.Context, employeePersonNumber, cycleID string) error {
	_, err := w.tx.Exec(ctx, `
    DELETE FROM appraiser_mappings
    WHERE employee_person_number = $1 AND performance_cycle_id::text = $2
  `, employeePersonNumber, cycleID)
	return err
}

func (w *txWriter) MarkDocumentLaunched(ctx context.Context, documentID string) (bool, error) {
	tag, err := w.tx.Exec(ctx, `
    UPDATE performance_documents SET is_launched = true
    WHERE id::text = $1 AND is_launched = false
  `, documentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (w *txWriter) LockEmployeeDocumentStatus(ctx context.Context, id string) (evaluation.Task, error) {
	var status string
	err := w.tx.QueryRow(ctx, `
    SELECT status FROM employee_documents
    WHERE id::text = $1
    FOR UPDATE
  `, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return evaluation.Task(status), err
}

func (w *txWriter) UpdateEmployeeDocumentStatus(ctx context.Context, id string, from, to evaluation.Task) (bool, error) {
	tag, err := w.tx.Exec(ctx, `
    UPDATE employee_documents SET status = $3, updated_at = now()
    WHERE id::text = $1 AND status = $2
  `, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (w *txWriter) SetMappingCompleted(ctx context.Context, mappingID string, completed bool) error {
	_, err := w.tx.Exec(ctx, "UPDATE appraiser_mappings SET is_completed = $2 WHERE id::text = $1", mappingID, completed)
	return err
}

func (w *txWriter) UpsertEvaluation(ctx context.Context, e Evaluation) error {
	_, err := w.tx.Exec(ctx, `
    INSERT INTO employee_evaluations
      (employee_document_id, section_id, goal_id, evaluator_person_number, evaluator_role, rating, comment)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (employee_document_id, section_id, goal_id, evaluator_person_number) DO UPDATE
      SET evaluator_role = EXCLUDED.evaluator_role,
          rating = EXCLUDED.rating,
          comment = EXCLUDED.comment,
          updated_at = now()
  `, e.EmployeeDocumentID, e.SectionID, e.GoalID, e.EvaluatorPersonNumber, string(e.EvaluatorRole), e.Rating, e.Comment)
	return err
}
