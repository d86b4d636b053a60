package performance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"appraisal/internal/domain/evaluation"
)

// nameTables lists the tables whose name column is unique.
var nameTables = map[string]bool{
	"review_periods":        true,
	"goal_plans":            true,
	"performance_templates": true,
	"evaluation_flows":      true,
	"eligibilities":         true,
	"performance_documents": true,
}

func (s *Store) NameTaken(ctx context.Context, table, name string) (bool, error) {
	if !nameTables[table] {
		return false, fmt.Errorf("name lookup not supported for %s", table)
	}
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM "+table+" WHERE lower(name) = lower($1)", name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListReviewPeriods(ctx context.Context) ([]ReviewPeriod, error) {
	rows, err := s.DB.Query(ctx, "SELECT id::text, name, start_date, end_date FROM review_periods ORDER BY start_date DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReviewPeriod
	for rows.Next() {
		var p ReviewPeriod
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetReviewPeriod(ctx context.Context, id string) (ReviewPeriod, error) {
	var p ReviewPeriod
	err := s.DB.QueryRow(ctx, "SELECT id::text, name, start_date, end_date FROM review_periods WHERE id::text = $1", id).
		Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate)
	return p, notFound(err)
}

func (s *Store) CreateReviewPeriod(ctx context.Context, p ReviewPeriod) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO review_periods (name, start_date, end_date)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, p.Name, p.StartDate, p.EndDate).Scan(&id)
	return id, err
}

func (s *Store) ListCycles(ctx context.Context, reviewPeriodID string) ([]PerformanceCycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, review_period_id::text, name, start_date, end_date
    FROM performance_cycles
    WHERE review_period_id::text = $1
    ORDER BY start_date
  `, reviewPeriodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PerformanceCycle
	for rows.Next() {
		var c PerformanceCycle
		if err := rows.Scan(&c.ID, &c.ReviewPeriodID, &c.Name, &c.StartDate, &c.EndDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCycle(ctx context.Context, id string) (PerformanceCycle, error) {
	var c PerformanceCycle
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, review_period_id::text, name, start_date, end_date
    FROM performance_cycles
    WHERE id::text = $1
  `, id).Scan(&c.ID, &c.ReviewPeriodID, &c.Name, &c.StartDate, &c.EndDate)
	return c, notFound(err)
}

func (s *Store) CreateCycle(ctx context.Context, c PerformanceCycle) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO performance_cycles (review_period_id, name, start_date, end_date)
    VALUES ($1,$2,$3,$4)
    RETURNING id::text
  `, c.ReviewPeriodID, c.Name, c.StartDate, c.EndDate).Scan(&id)
	return id, err
}

func (s *Store) CreateGoalPlan(ctx context.Context, p GoalPlan) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO goal_plans (review_period_id, name)
    VALUES ($1,$2)
    RETURNING id::text
  `, p.ReviewPeriodID, p.Name).Scan(&id)
	return id, err
}

func (s *Store) GetGoalPlan(ctx context.Context, id string) (GoalPlan, error) {
	var p GoalPlan
	err := s.DB.QueryRow(ctx, "SELECT id::text, review_period_id::text, name FROM goal_plans WHERE id::text = $1", id).
		Scan(&p.ID, &p.ReviewPeriodID, &p.Name)
	return p, notFound(err)
}

func (s *Store) CreateGoal(ctx context.Context, g evaluation.Goal) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO goals (goal_plan_id, name, type, technologist_type, weight, status)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id::text
  `, g.GoalPlanID, g.Name, string(g.Type), g.TechnologistType, g.Weight, g.Status).Scan(&id)
	return id, err
}

func (s *Store) CreateTemplate(ctx context.Context, t Template) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "INSERT INTO performance_templates (name) VALUES ($1) RETURNING id::text", t.Name).Scan(&id)
	return id, err
}

func (s *Store) GetTemplate(ctx context.Context, id string) (Template, error) {
	var t Template
	err := s.DB.QueryRow(ctx, "SELECT id::text, name FROM performance_templates WHERE id::text = $1", id).Scan(&t.ID, &t.Name)
	return t, notFound(err)
}

// CreateSection inserts at sec.Order, shifting later sections down.
func (s *Store) CreateSection(ctx context.Context, sec evaluation.Section) (string, error) {
	permissions, err := json.Marshal(sec.Permissions)
	if err != nil {
		return "", err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
    UPDATE template_sections SET section_order = section_order + 1
    WHERE template_id::text = $1 AND section_order >= $2
  `, sec.TemplateID, sec.Order); err != nil {
		return "", err
	}
	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO template_sections
      (template_id, name, section_order, type, rating_enabled, section_rating_mandatory, item_rating_mandatory,
       comment_enabled, section_comment_mandatory, item_comment_mandatory, min_comment_length, max_comment_length,
       rating_calculation_method, permissions_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    RETURNING id::text
  `, sec.TemplateID, sec.Name, sec.Order, string(sec.Type), sec.RatingEnabled, sec.SectionRatingMandatory,
		sec.ItemRatingMandatory, sec.CommentEnabled, sec.SectionCommentMandatory, sec.ItemCommentMandatory,
		sec.MinCommentLength, sec.MaxCommentLength, string(sec.RatingCalculationMethod), permissions).Scan(&id); err != nil {
		return "", err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) ReorderSections(ctx context.Context, templateID string, order []string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, id := range order {
		batch.Queue(`
      UPDATE template_sections SET section_order = $3
      WHERE template_id::text = $1 AND id::text = $2
    `, templateID, id, i+1)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateFlow(ctx context.Context, f evaluation.EvaluationFlow) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	if err := tx.QueryRow(ctx, "INSERT INTO evaluation_flows (name) VALUES ($1) RETURNING id::text", f.Name).Scan(&id); err != nil {
		return "", err
	}
	batch := &pgx.Batch{}
	for _, step := range f.Steps {
		batch.Queue("INSERT INTO evaluation_steps (flow_id, sequence, task, role) VALUES ($1,$2,$3,$4)",
			id, step.Sequence, string(step.Task), string(step.Role))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) CreateEligibility(ctx context.Context, e evaluation.Eligibility) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	if err := tx.QueryRow(ctx, "INSERT INTO eligibilities (name) VALUES ($1) RETURNING id::text", e.Name).Scan(&id); err != nil {
		return "", err
	}
	batch := &pgx.Batch{}
	for _, rule := range e.Rules {
		batch.Queue("INSERT INTO eligibility_rules (eligibility_id, rule_type, rule_values) VALUES ($1,$2,$3)",
			id, string(rule.Type), rule.Values)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) UpsertTechnologistWeight(ctx context.Context, w evaluation.TechnologistWeight) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO technologist_weights (technologist_type, work_goal_weight, home_goal_weight, primary_appraiser, secondary_appraiser)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (technologist_type) DO UPDATE
      SET work_goal_weight = EXCLUDED.work_goal_weight,
          home_goal_weight = EXCLUDED.home_goal_weight,
          primary_appraiser = EXCLUDED.primary_appraiser,
          secondary_appraiser = EXCLUDED.secondary_appraiser
  `, w.TechnologistType, w.WorkGoalWeight, w.HomeGoalWeight, string(w.PrimaryAppraiser), string(w.SecondaryAppraiser))
	return err
}

func (s *Store) CreatePerformanceDocument(ctx context.Context, d PerformanceDocument) (string, error) {
	sectionIDs := d.SectionIDs
	if sectionIDs == nil {
		sectionIDs = []string{}
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO performance_documents
      (name, review_period_id, performance_cycle_id, goal_plan_id, template_id, flow_id, eligibility_id, section_ids)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id::text
  `, d.Name, d.ReviewPeriodID, d.PerformanceCycleID, d.GoalPlanID, d.TemplateID, d.FlowID, d.EligibilityID, sectionIDs).Scan(&id)
	return id, err
}

func (s *Store) UpdateDocumentSections(ctx context.Context, documentID string, sectionIDs []string) (bool, error) {
	if sectionIDs == nil {
		sectionIDs = []string{}
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE performance_documents SET section_ids = $2
    WHERE id::text = $1 AND is_launched = false
  `, documentID, sectionIDs)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
