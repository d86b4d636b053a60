package performance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"appraisal/internal/domain/evaluation"
)

var errInjected = errors.New("injected write failure")

type memState struct {
	perfDocs      map[string]PerformanceDocument
	flows         map[string]evaluation.EvaluationFlow
	eligibilities map[string]evaluation.Eligibility
	employees     map[string]evaluation.Employee
	weights       map[string]evaluation.TechnologistWeight
	docs          map[string]EmployeeDocument
	mappings      map[string]evaluation.AppraiserMapping
	sections      map[string]evaluation.Section
	goals         map[string]evaluation.Goal
	evals         map[string]Evaluation
	periods       map[string]ReviewPeriod
	cycles        map[string]PerformanceCycle
	plans         map[string]GoalPlan
	templates     map[string]Template
}

func newMemState() *memState {
	return &memState{
		perfDocs:      map[string]PerformanceDocument{},
		flows:         map[string]evaluation.EvaluationFlow{},
		eligibilities: map[string]evaluation.Eligibility{},
		employees:     map[string]evaluation.Employee{},
		weights:       map[string]evaluation.TechnologistWeight{},
		docs:          map[string]EmployeeDocument{},
		mappings:      map[string]evaluation.AppraiserMapping{},
		sections:      map[string]evaluation.Section{},
		goals:         map[string]evaluation.Goal{},
		evals:         map[string]Evaluation{},
		periods:       map[string]ReviewPeriod{},
		cycles:        map[string]PerformanceCycle{},
		plans:         map[string]GoalPlan{},
		templates:     map[string]Template{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		perfDocs:      cloneMap(s.perfDocs),
		flows:         cloneMap(s.flows),
		eligibilities: cloneMap(s.eligibilities),
		employees:     cloneMap(s.employees),
		weights:       cloneMap(s.weights),
		docs:          cloneMap(s.docs),
		mappings:      cloneMap(s.mappings),
		sections:      cloneMap(s.sections),
		goals:         cloneMap(s.goals),
		evals:         cloneMap(s.evals),
		periods:       cloneMap(s.periods),
		cycles:        cloneMap(s.cycles),
		plans:         cloneMap(s.plans),
		templates:     cloneMap(s.templates),
	}
}

// memStore keeps everything in maps. A transaction works on a copy that replaces the
// committed state only when fn succeeds.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failOnWrite makes the Nth write of the next transactions fail (1-based, 0 disables).
	failOnWrite int
	writes      int
	// beforeTx runs against the committed state right before a transaction starts.
	beforeTx func(*memState)
	txCount  int
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (m *memStore) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) InTx(ctx context.Context, fn func(Writer) error) error {
	m.mu.Lock()
	if m.beforeTx != nil {
		m.beforeTx(m.state)
		m.beforeTx = nil
	}
	working := m.state.clone()
	m.writes = 0
	m.mu.Unlock()

	if err := fn(&memWriter{store: m, state: working}); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = working
	m.txCount++
	m.mu.Unlock()
	return nil
}

func (m *memStore) read() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *memStore) GetPerformanceDocument(_ context.Context, id string) (PerformanceDocument, error) {
	d, ok := m.read().perfDocs[id]
	if !ok {
		return d, ErrNotFound
	}
	return d, nil
}

func (m *memStore) GetFlow(_ context.Context, id string) (evaluation.EvaluationFlow, error) {
	f, ok := m.read().flows[id]
	if !ok {
		return f, ErrNotFound
	}
	return f, nil
}

func (m *memStore) GetEligibility(_ context.Context, id string) (evaluation.Eligibility, error) {
	e, ok := m.read().eligibilities[id]
	if !ok {
		return e, ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListEmployees(context.Context) ([]evaluation.Employee, error) {
	var out []evaluation.Employee
	for _, e := range m.read().employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonNumber < out[j].PersonNumber })
	return out, nil
}

func (m *memStore) GetEmployee(_ context.Context, personNumber string) (evaluation.Employee, error) {
	e, ok := m.read().employees[personNumber]
	if !ok {
		return e, ErrNotFound
	}
	return e, nil
}

func (m *memStore) TechnologistWeights(context.Context) (map[string]evaluation.TechnologistWeight, error) {
	return cloneMap(m.read().weights), nil
}

func (m *memStore) ListEmployeeDocuments(_ context.Context, filter DocumentFilter) ([]EmployeeDocument, error) {
	ids := map[string]bool{}
	for _, id := range filter.IDs {
		ids[id] = true
	}
	var out []EmployeeDocument
	for _, d := range m.read().docs {
		switch {
		case filter.PerformanceDocumentID != "" && d.PerformanceDocumentID != filter.PerformanceDocumentID:
		case filter.PerformanceCycleID != "" && d.PerformanceCycleID != filter.PerformanceCycleID:
		case filter.EmployeePersonNumber != "" && d.EmployeePersonNumber != filter.EmployeePersonNumber:
		case filter.Status != "" && d.Status != filter.Status:
		case len(ids) > 0 && !ids[d.ID]:
		default:
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeePersonNumber != out[j].EmployeePersonNumber {
			return out[i].EmployeePersonNumber < out[j].EmployeePersonNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) GetEmployeeDocument(_ context.Context, id string) (EmployeeDocument, error) {
	d, ok := m.read().docs[id]
	if !ok {
		return d, ErrNotFound
	}
	return d, nil
}

func (m *memStore) ListAppraiserMappings(_ context.Context, filter MappingFilter) ([]evaluation.AppraiserMapping, error) {
	var out []evaluation.AppraiserMapping
	for _, mp := range m.read().mappings {
		switch {
		case filter.PerformanceCycleID != "" && mp.PerformanceCycleID != filter.PerformanceCycleID:
		case filter.EmployeePersonNumber != "" && mp.EmployeePersonNumber != filter.EmployeePersonNumber:
		case filter.AppraiserPersonNumber != "" && mp.AppraiserPersonNumber != filter.AppraiserPersonNumber:
		default:
			out = append(out, mp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeePersonNumber != out[j].EmployeePersonNumber {
			return out[i].EmployeePersonNumber < out[j].EmployeePersonNumber
		}
		return out[i].AppraiserPersonNumber < out[j].AppraiserPersonNumber
	})
	return out, nil
}

func (m *memStore) ListSections(_ context.Context, templateID string, ids []string) ([]evaluation.Section, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []evaluation.Section
	for _, s := range m.read().sections {
		if s.TemplateID != templateID || (len(want) > 0 && !want[s.ID]) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *memStore) ListGoals(_ context.Context, goalPlanID string) ([]evaluation.Goal, error) {
	var out []evaluation.Goal
	for _, g := range m.read().goals {
		if g.GoalPlanID == goalPlanID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListEvaluations(_ context.Context, employeeDocumentID string) ([]Evaluation, error) {
	var out []Evaluation
	for _, e := range m.read().evals {
		if e.EmployeeDocumentID == employeeDocumentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return evalKey(out[i]) < evalKey(out[j]) })
	return out, nil
}

func evalKey(e Evaluation) string {
	return strings.Join([]string{e.EmployeeDocumentID, e.SectionID, e.GoalID, e.EvaluatorPersonNumber}, "|")
}

type memWriter struct {
	store *memStore
	state *memState
}

func (w *memWriter) write() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.writes++
	if w.store.failOnWrite > 0 && w.store.writes == w.store.failOnWrite {
		return errInjected
	}
	return nil
}

func (w *memWriter) createEmployeeDocument(_ context.Context, doc EmployeeDocument) error {
	if err := w.write(); err != nil {
		return err
	}
	for _, d := range w.state.docs {
		if d.PerformanceDocumentID == doc.PerformanceDocumentID && d.EmployeePersonNumber == doc.EmployeePersonNumber {
			return fmt.Errorf("duplicate employee document %s", doc.EmployeePersonNumber)
		}
	}
	w.state.docs[doc.ID] = doc
	return nil
}

func (w *memWriter) CreateAppraiserMapping(_ context.Context, mapping evaluation.AppraiserMapping) error {
	if err := w.write(); err != nil {
		return err
	}
	for _, existing := range w.state.mappings {
		if existing.EmployeePersonNumber == mapping.EmployeePersonNumber &&
			existing.PerformanceCycleID == mapping.PerformanceCycleID &&
			existing.AppraiserPersonNumber == mapping.AppraiserPersonNumber {
			return fmt.Errorf("duplicate appraiser mapping %s", mapping.AppraiserPersonNumber)
		}
	}
	w.state.mappings[mapping.ID] = mapping
	return nil
}

func (w *memWriter) CreateLaunchRows(ctx context.Context, docs []EmployeeDocument, mappings []evaluation.AppraiserMapping) error {
	for _, doc := range docs {
		if err := w.createEmployeeDocument(ctx, doc); err != nil {
			return err
		}
	}
	for _, m := range mappings {
		if err := w.CreateAppraiserMapping(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (w *memWriter) DeleteAppraiserMappings(_ context.Context, employeePersonNumber, cycleID string) error {
	if err := w.write(); err != nil {
		return err
	}
	for id, mp := range w.state.mappings {
		if mp.EmployeePersonNumber == employeePersonNumber && mp.PerformanceCycleID == cycleID {
			delete(w.state.mappings, id)
		}
	}
	return nil
}

func (w *memWriter) MarkDocumentLaunched(_ context.Context, documentID string) (bool, error) {
	if err := w.write(); err != nil {
		return false, err
	}
	d, ok := w.state.perfDocs[documentID]
	if !ok || d.IsLaunched {
		return false, nil
	}
	d.IsLaunched = true
	w.state.perfDocs[documentID] = d
	return true, nil
}

func (w *memWriter) LockEmployeeDocumentStatus(_ context.Context, id string) (evaluation.Task, error) {
	d, ok := w.state.docs[id]
	if !ok {
		return "", ErrNotFound
	}
	return d.Status, nil
}

func (w *memWriter) UpdateEmployeeDocumentStatus(_ context.Context, id string, from, to evaluation.Task) (bool, error) {
	if err := w.write(); err != nil {
		return false, err
	}
	d, ok := w.state.docs[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	w.state.docs[id] = d
	return true, nil
}

func (w *memWriter) SetMappingCompleted(_ context.Context, mappingID string, completed bool) error {
	if err := w.write(); err != nil {
		return err
	}
	mp, ok := w.state.mappings[mappingID]
	if !ok {
		return ErrNotFound
	}
	mp.IsCompleted = completed
	w.state.mappings[mappingID] = mp
	return nil
}

func (w *memWriter) UpsertEvaluation(_ context.Context, e Evaluation) error {
	if err := w.write(); err != nil {
		return err
	}
	w.state.evals[evalKey(e)] = e
	return nil
}

// ConfigStore

func (m *memStore) NameTaken(_ context.Context, table, name string) (bool, error) {
	st := m.read()
	var names []string
	switch table {
	case "review_periods":
		for _, v := range st.periods {
			names = append(names, v.Name)
		}
	case "goal_plans":
		for _, v := range st.plans {
			names = append(names, v.Name)
		}
	case "performance_templates":
		for _, v := range st.templates {
			names = append(names, v.Name)
		}
	case "evaluation_flows":
		for _, v := range st.flows {
			names = append(names, v.Name)
		}
	case "eligibilities":
		for _, v := range st.eligibilities {
			names = append(names, v.Name)
		}
	case "performance_documents":
		for _, v := range st.perfDocs {
			names = append(names, v.Name)
		}
	default:
		return false, fmt.Errorf("unknown table %s", table)
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListReviewPeriods(context.Context) ([]ReviewPeriod, error) {
	var out []ReviewPeriod
	for _, p := range m.read().periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memStore) GetReviewPeriod(_ context.Context, id string) (ReviewPeriod, error) {
	p, ok := m.read().periods[id]
	if !ok {
		return p, ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreateReviewPeriod(_ context.Context, p ReviewPeriod) (string, error) {
	p.ID = m.newID("period")
	m.read().periods[p.ID] = p
	return p.ID, nil
}

func (m *memStore) ListCycles(_ context.Context, reviewPeriodID string) ([]PerformanceCycle, error) {
	var out []PerformanceCycle
	for _, c := range m.read().cycles {
		if c.ReviewPeriodID == reviewPeriodID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *memStore) GetCycle(_ context.Context, id string) (PerformanceCycle, error) {
	c, ok := m.read().cycles[id]
	if !ok {
		return c, ErrNotFound
	}
	return c, nil
}

func (m *memStore) CreateCycle(_ context.Context, c PerformanceCycle) (string, error) {
	c.ID = m.newID("cycle")
	m.read().cycles[c.ID] = c
	return c.ID, nil
}

func (m *memStore) CreateGoalPlan(_ context.Context, p GoalPlan) (string, error) {
	p.ID = m.newID("plan")
	m.read().plans[p.ID] = p
	return p.ID, nil
}

func (m *memStore) GetGoalPlan(_ context.Context, id string) (GoalPlan, error) {
	p, ok := m.read().plans[id]
	if !ok {
		return p, ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreateGoal(_ context.Context, g evaluation.Goal) (string, error) {
	g.ID = m.newID("goal")
	m.read().goals[g.ID] = g
	return g.ID, nil
}

func (m *memStore) CreateTemplate(_ context.Context, t Template) (string, error) {
	t.ID = m.newID("template")
	m.read().templates[t.ID] = t
	return t.ID, nil
}

func (m *memStore) GetTemplate(_ context.Context, id string) (Template, error) {
	t, ok := m.read().templates[id]
	if !ok {
		return t, ErrNotFound
	}
	return t, nil
}

func (m *memStore) CreateSection(_ context.Context, sec evaluation.Section) (string, error) {
	st := m.read()
	for id, other := range st.sections {
		if other.TemplateID == sec.TemplateID && other.Order >= sec.Order {
			other.Order++
			st.sections[id] = other
		}
	}
	sec.ID = m.newID("section")
	st.sections[sec.ID] = sec
	return sec.ID, nil
}

func (m *memStore) ReorderSections(_ context.Context, templateID string, order []string) error {
	st := m.read()
	for i, id := range order {
		sec := st.sections[id]
		sec.Order = i + 1
		st.sections[id] = sec
	}
	return nil
}

func (m *memStore) CreateFlow(_ context.Context, f evaluation.EvaluationFlow) (string, error) {
	f.ID = m.newID("flow")
	m.read().flows[f.ID] = f
	return f.ID, nil
}

func (m *memStore) CreateEligibility(_ context.Context, e evaluation.Eligibility) (string, error) {
	e.ID = m.newID("eligibility")
	m.read().eligibilities[e.ID] = e
	return e.ID, nil
}

func (m *memStore) UpsertTechnologistWeight(_ context.Context, w evaluation.TechnologistWeight) error {
	m.read().weights[w.TechnologistType] = w
	return nil
}

func (m *memStore) CreatePerformanceDocument(_ context.Context, d PerformanceDocument) (string, error) {
	d.ID = m.newID("document")
	m.read().perfDocs[d.ID] = d
	return d.ID, nil
}

func (m *memStore) UpdateDocumentSections(_ context.Context, documentID string, sectionIDs []string) (bool, error) {
	st := m.read()
	d, ok := st.perfDocs[documentID]
	if !ok || d.IsLaunched {
		return false, nil
	}
	d.SectionIDs = sectionIDs
	st.perfDocs[documentID] = d
	return true, nil
}

type recordedAudit struct {
	action   string
	entityID string
	details  any
}

type fakeAudit struct {
	mu     sync.Mutex
	events []recordedAudit
}

func (a *fakeAudit) Record(_ context.Context, _, action, _, entityID, _ string, details any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedAudit{action: action, entityID: entityID, details: details})
	return nil
}

func (a *fakeAudit) count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e.action == action {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Notify(_ context.Context, personNumber, ntype, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, personNumber+":"+ntype)
}

func (n *fakeNotifier) has(personNumber, ntype string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.sent {
		if s == personNumber+":"+ntype {
			return true
		}
	}
	return false
}
