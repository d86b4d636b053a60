package performance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"appraisal/internal/domain/evaluation"
)

func nameIssue(ctx context.Context, store ConfigStore, issues *evaluation.Issues, table, name string) error {
	if strings.TrimSpace(name) == "" {
		issues.Add("name", "is required")
		return nil
	}
	taken, err := store.NameTaken(ctx, table, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	if taken {
		issues.Add("name", "is already in use")
	}
	return nil
}

func (s *Service) ListReviewPeriods(ctx context.Context) ([]ReviewPeriod, error) {
	return s.config.ListReviewPeriods(ctx)
}

func (s *Service) CreateReviewPeriod(ctx context.Context, p ReviewPeriod) (ReviewPeriod, error) {
	var issues evaluation.Issues
	if err := nameIssue(ctx, s.config, &issues, "review_periods", p.Name); err != nil {
		return ReviewPeriod{}, err
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		issues.Add("dates", "start and end dates are required")
	} else if p.EndDate.Before(p.StartDate) {
		issues.Add("endDate", "must not be before start date")
	}
	if err := issues.Err(); err != nil {
		return ReviewPeriod{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	id, err := s.config.CreateReviewPeriod(ctx, p)
	if err != nil {
		return ReviewPeriod{}, err
	}
	p.ID = id
	return p, nil
}

// CreateCycle adds a performance cycle inside its review period without overlapping a sibling.
func (s *Service) CreateCycle(ctx context.Context, c PerformanceCycle) (PerformanceCycle, error) {
	period, err := s.config.GetReviewPeriod(ctx, c.ReviewPeriodID)
	if err != nil {
		return PerformanceCycle{}, err
	}
	siblings, err := s.config.ListCycles(ctx, period.ID)
	if err != nil {
		return PerformanceCycle{}, err
	}

	var issues evaluation.Issues
	issues.Required("name", c.Name)
	switch {
	case c.StartDate.IsZero() || c.EndDate.IsZero():
		issues.Add("dates", "start and end dates are required")
	case c.EndDate.Before(c.StartDate):
		issues.Add("endDate", "must not be before start date")
	case c.StartDate.Before(period.StartDate) || c.EndDate.After(period.EndDate):
		issues.Add("dates", fmt.Sprintf("must fall within review period %s", period.Name))
	default:
		for _, other := range siblings {
			if strings.EqualFold(other.Name, strings.TrimSpace(c.Name)) {
				issues.Add("name", "is already in use in this review period")
			}
			if !c.StartDate.After(other.EndDate) && !other.StartDate.After(c.EndDate) {
				issues.Add("dates", "overlaps cycle "+other.Name)
			}
		}
	}
	if err := issues.Err(); err != nil {
		return PerformanceCycle{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	id, err := s.config.CreateCycle(ctx, c)
	if err != nil {
		return PerformanceCycle{}, err
	}
	c.ID = id
	return c, nil
}

func (s *Service) CreateGoalPlan(ctx context.Context, p GoalPlan) (GoalPlan, error) {
	var issues evaluation.Issues
	issues.Required("reviewPeriodId", p.ReviewPeriodID)
	if err := nameIssue(ctx, s.config, &issues, "goal_plans", p.Name); err != nil {
		return GoalPlan{}, err
	}
	if err := issues.Err(); err != nil {
		return GoalPlan{}, err
	}
	if _, err := s.config.GetReviewPeriod(ctx, p.ReviewPeriodID); err != nil {
		return GoalPlan{}, err
	}
	id, err := s.config.CreateGoalPlan(ctx, p)
	if err != nil {
		return GoalPlan{}, err
	}
	p.ID = id
	return p, nil
}

func (s *Service) CreateGoal(ctx context.Context, g evaluation.Goal) (evaluation.Goal, error) {
	if _, err := s.config.GetGoalPlan(ctx, g.GoalPlanID); err != nil {
		return evaluation.Goal{}, err
	}
	var issues evaluation.Issues
	issues.Required("name", g.Name)
	goalType, err := evaluation.ParseGoalType(string(g.Type))
	if err != nil {
		issues.Add("type", err.Error())
	}
	g.Type = goalType
	if g.TechnologistType != "" && !s.LOV.HasTechnologistType(g.TechnologistType) {
		issues.Add("technologistType", "unknown technologist type "+g.TechnologistType)
	}
	if g.Weight != nil && (*g.Weight < 0 || *g.Weight > 100) {
		issues.Add("weight", "must be between 0 and 100")
	}
	if g.Status == "" {
		g.Status = GoalStatusActive
	}
	if !s.LOV.HasGoalStatus(g.Status) {
		issues.Add("status", "unknown goal status "+g.Status)
	}
	if err := issues.Err(); err != nil {
		return evaluation.Goal{}, err
	}
	id, err := s.config.CreateGoal(ctx, g)
	if err != nil {
		return evaluation.Goal{}, err
	}
	g.ID = id
	return g, nil
}

func (s *Service) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	var issues evaluation.Issues
	if err := nameIssue(ctx, s.config, &issues, "performance_templates", t.Name); err != nil {
		return Template{}, err
	}
	if err := issues.Err(); err != nil {
		return Template{}, err
	}
	id, err := s.config.CreateTemplate(ctx, t)
	if err != nil {
		return Template{}, err
	}
	t.ID = id
	return t, nil
}

// CreateSection appends a section to a template; a zero order means last.
func (s *Service) CreateSection(ctx context.Context, section evaluation.Section) (evaluation.Section, error) {
	if _, err := s.config.GetTemplate(ctx, section.TemplateID); err != nil {
		return evaluation.Section{}, err
	}
	existing, err := s.store.ListSections(ctx, section.TemplateID, nil)
	if err != nil {
		return evaluation.Section{}, err
	}
	if section.Order == 0 {
		section.Order = len(existing) + 1
	}
	if section.RatingCalculationMethod == "" {
		section.RatingCalculationMethod = evaluation.CalculationManual
	}
	if err := canonicalSection(&section); err != nil {
		return evaluation.Section{}, err
	}
	if err := section.Validate(); err != nil {
		return evaluation.Section{}, err
	}
	if section.Order > len(existing)+1 {
		return evaluation.Section{}, &evaluation.ValidationError{Issues: []evaluation.Issue{{Field: "order", Reason: fmt.Sprintf("must be at most %d", len(existing)+1)}}}
	}
	id, err := s.config.CreateSection(ctx, section)
	if err != nil {
		return evaluation.Section{}, err
	}
	section.ID = id
	return section, nil
}

// canonicalSection checks the section type and rewrites permission role labels to canonical roles.
func canonicalSection(section *evaluation.Section) error {
	var issues evaluation.Issues
	switch section.Type {
	case evaluation.SectionPerformanceGoals, evaluation.SectionOverallSummary, evaluation.SectionRatingsAndComments:
	default:
		issues.Add("type", fmt.Sprintf("unknown section type %q", section.Type))
	}
	switch section.RatingCalculationMethod {
	case evaluation.CalculationManual, evaluation.CalculationAutomatic:
	default:
		issues.Add("ratingCalculationMethod", fmt.Sprintf("unknown calculation method %q", section.RatingCalculationMethod))
	}
	for i, p := range section.Permissions {
		role, err := evaluation.ParseRole(string(p.Role))
		if err != nil {
			issues.Add(fmt.Sprintf("permissions[%d].role", i), err.Error())
			continue
		}
		section.Permissions[i].Role = role
	}
	return issues.Err()
}

// ReorderSections renumbers the sections of a template 1..n in the given order.
func (s *Service) ReorderSections(ctx context.Context, templateID string, order []string) error {
	existing, err := s.store.ListSections(ctx, templateID, nil)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, section := range existing {
		known[section.ID] = true
	}
	var issues evaluation.Issues
	if len(order) != len(existing) {
		issues.Add("order", fmt.Sprintf("must list all %d sections", len(existing)))
	}
	seen := map[string]bool{}
	for i, id := range order {
		field := fmt.Sprintf("order[%d]", i)
		if !known[id] {
			issues.Add(field, "unknown section "+id)
		}
		if seen[id] {
			issues.Add(field, "duplicate section "+id)
		}
		seen[id] = true
	}
	if err := issues.Err(); err != nil {
		return err
	}
	return s.config.ReorderSections(ctx, templateID, order)
}

// CreateFlow stores an evaluation flow with canonical task and role names.
func (s *Service) CreateFlow(ctx context.Context, flow evaluation.EvaluationFlow) (evaluation.EvaluationFlow, error) {
	var issues evaluation.Issues
	if strings.TrimSpace(flow.Name) != "" {
		if err := nameIssue(ctx, s.config, &issues, "evaluation_flows", flow.Name); err != nil {
			return evaluation.EvaluationFlow{}, err
		}
	}
	if err := flow.Validate(); err != nil {
		var verr *evaluation.ValidationError
		if errors.As(err, &verr) {
			for _, issue := range verr.Issues {
				issues.Add(issue.Field, issue.Reason)
			}
		}
	}
	if err := issues.Err(); err != nil {
		return evaluation.EvaluationFlow{}, err
	}
	for i, step := range flow.Steps {
		flow.Steps[i].Task, _ = evaluation.ParseTask(string(step.Task))
		flow.Steps[i].Role, _ = evaluation.ParseRole(string(step.Role))
	}
	id, err := s.config.CreateFlow(ctx, flow)
	if err != nil {
		return evaluation.EvaluationFlow{}, err
	}
	flow.ID = id
	return flow, nil
}

func (s *Service) CreateEligibility(ctx context.Context, e evaluation.Eligibility) (evaluation.Eligibility, error) {
	var issues evaluation.Issues
	if err := nameIssue(ctx, s.config, &issues, "eligibilities", e.Name); err != nil {
		return evaluation.Eligibility{}, err
	}
	for i, rule := range e.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		ruleType, err := evaluation.ParseRuleType(string(rule.Type))
		if err != nil {
			issues.Add(field+".type", err.Error())
			continue
		}
		e.Rules[i].Type = ruleType
		if len(rule.Values) == 0 {
			issues.Add(field+".values", "at least one value is required")
		}
		for _, v := range rule.Values {
			if !s.LOV.KnownRuleValue(string(ruleType), v) {
				issues.Add(field+".values", fmt.Sprintf("unknown %s %q", ruleType, v))
			}
		}
	}
	if err := issues.Err(); err != nil {
		return evaluation.Eligibility{}, err
	}
	id, err := s.config.CreateEligibility(ctx, e)
	if err != nil {
		return evaluation.Eligibility{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Service) SaveTechnologistWeight(ctx context.Context, w evaluation.TechnologistWeight) (evaluation.TechnologistWeight, error) {
	var issues evaluation.Issues
	if err := w.Validate(); err != nil {
		var verr *evaluation.ValidationError
		if errors.As(err, &verr) {
			for _, issue := range verr.Issues {
				issues.Add(issue.Field, issue.Reason)
			}
		}
	}
	if w.TechnologistType != "" && !s.LOV.HasTechnologistType(w.TechnologistType) {
		issues.Add("technologistType", "unknown technologist type "+w.TechnologistType)
	}
	if err := issues.Err(); err != nil {
		return evaluation.TechnologistWeight{}, err
	}
	w.PrimaryAppraiser, _ = evaluation.ParseManagerRole(string(w.PrimaryAppraiser))
	w.SecondaryAppraiser, _ = evaluation.ParseManagerRole(string(w.SecondaryAppraiser))
	if err := s.config.UpsertTechnologistWeight(ctx, w); err != nil {
		return evaluation.TechnologistWeight{}, err
	}
	return w, nil
}

// CreatePerformanceDocument checks every reference of the document before storing it.
func (s *Service) CreatePerformanceDocument(ctx context.Context, d PerformanceDocument) (PerformanceDocument, error) {
	var issues evaluation.Issues
	if err := nameIssue(ctx, s.config, &issues, "performance_documents", d.Name); err != nil {
		return PerformanceDocument{}, err
	}
	issues.Required("reviewPeriodId", d.ReviewPeriodID)
	issues.Required("performanceCycleId", d.PerformanceCycleID)
	issues.Required("goalPlanId", d.GoalPlanID)
	issues.Required("templateId", d.TemplateID)
	issues.Required("flowId", d.FlowID)
	issues.Required("eligibilityId", d.EligibilityID)
	if err := issues.Err(); err != nil {
		return PerformanceDocument{}, err
	}

	cycle, err := s.config.GetCycle(ctx, d.PerformanceCycleID)
	if err != nil {
		return PerformanceDocument{}, err
	}
	if cycle.ReviewPeriodID != d.ReviewPeriodID {
		issues.Add("performanceCycleId", "cycle does not belong to the review period")
	}
	if len(d.SectionIDs) > 0 {
		sections, err := s.store.ListSections(ctx, d.TemplateID, d.SectionIDs)
		if err != nil {
			return PerformanceDocument{}, err
		}
		if len(sections) != len(uniqueIDs(d.SectionIDs)) {
			issues.Add("sectionIds", "every section must belong to the template")
		}
	}
	if _, err := s.store.GetFlow(ctx, d.FlowID); errors.Is(err, ErrNotFound) {
		issues.Add("flowId", "unknown evaluation flow")
	} else if err != nil {
		return PerformanceDocument{}, err
	}
	if _, err := s.store.GetEligibility(ctx, d.EligibilityID); errors.Is(err, ErrNotFound) {
		issues.Add("eligibilityId", "unknown eligibility")
	} else if err != nil {
		return PerformanceDocument{}, err
	}
	if err := issues.Err(); err != nil {
		return PerformanceDocument{}, err
	}

	d.IsLaunched = false
	id, err := s.config.CreatePerformanceDocument(ctx, d)
	if err != nil {
		return PerformanceDocument{}, err
	}
	d.ID = id
	return d, nil
}

// UpdateDocumentSections changes the included sections while the document is not launched.
func (s *Service) UpdateDocumentSections(ctx context.Context, documentID string, sectionIDs []string) (PerformanceDocument, error) {
	doc, err := s.store.GetPerformanceDocument(ctx, documentID)
	if err != nil {
		return PerformanceDocument{}, err
	}
	if doc.IsLaunched {
		return PerformanceDocument{}, &evaluation.ConfigError{Subject: "performance document " + doc.Name, Err: ErrAlreadyLaunched}
	}
	sectionIDs = uniqueIDs(sectionIDs)
	sections, err := s.store.ListSections(ctx, doc.TemplateID, sectionIDs)
	if err != nil {
		return PerformanceDocument{}, err
	}
	if len(sections) != len(sectionIDs) {
		return PerformanceDocument{}, &evaluation.ValidationError{Issues: []evaluation.Issue{{Field: "sectionIds", Reason: "every section must belong to the template"}}}
	}
	updated, err := s.config.UpdateDocumentSections(ctx, documentID, sectionIDs)
	if err != nil {
		return PerformanceDocument{}, err
	}
	if !updated {
		return PerformanceDocument{}, &evaluation.ConfigError{Subject: "performance document " + doc.Name, Err: ErrAlreadyLaunched}
	}
	doc.SectionIDs = sectionIDs
	return doc, nil
}
