package performancehandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/performance"
	"appraisal/internal/platform/lov"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

const testSecret = "handler-secret"

// stubStore answers the few reads these tests reach; any other call panics on the nil interface.
type stubStore struct {
	performance.StoreAPI
	mappings []evaluation.AppraiserMapping
}

func (s *stubStore) GetPerformanceDocument(context.Context, string) (performance.PerformanceDocument, error) {
	return performance.PerformanceDocument{}, performance.ErrNotFound
}

func (s *stubStore) GetEmployeeDocument(context.Context, string) (performance.EmployeeDocument, error) {
	return performance.EmployeeDocument{}, performance.ErrNotFound
}

func (s *stubStore) ListAppraiserMappings(_ context.Context, filter performance.MappingFilter) ([]evaluation.AppraiserMapping, error) {
	var out []evaluation.AppraiserMapping
	for _, m := range s.mappings {
		if m.PerformanceCycleID == filter.PerformanceCycleID {
			out = append(out, m)
		}
	}
	return out, nil
}

type stubConfig struct {
	performance.ConfigStore
	periods []performance.ReviewPeriod
}

func (s *stubConfig) ListReviewPeriods(context.Context) ([]performance.ReviewPeriod, error) {
	return s.periods, nil
}

func newRouter(t *testing.T, store *stubStore) http.Handler {
	t.Helper()
	config := &stubConfig{periods: []performance.ReviewPeriod{{ID: "RP1", Name: "FY26"}}}
	svc := performance.NewService(store, config, lov.Values{})
	h := NewHandler(svc, auth.StaticPermissions{}, 0, 0)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	h.RegisterRoutes(r)
	return r
}

func bearer(t *testing.T, role, personNumber string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-" + personNumber, PersonNumber: personNumber, RoleName: role}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var env api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestRoutesRequireAuthAndPermission(t *testing.T) {
	router := newRouter(t, &stubStore{})

	rec := do(t, router, http.MethodGet, "/performance/review-periods", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	employee := bearer(t, auth.RoleEmployee, "E1")
	rec = do(t, router, http.MethodPost, "/performance/documents/PD1/launch", employee, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee launch, got %d", rec.Code)
	}
	hr := bearer(t, auth.RoleHR, "H1")
	rec = do(t, router, http.MethodPost, "/performance/review-periods", hr, `{"name":"FY27","startDate":"2027-01-01","endDate":"2027-12-31"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for hr configuration, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/performance/review-periods", employee, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := envelope(t, rec); !env.Success || env.RequestID == "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestLaunchMissingDocumentIsNotFound(t *testing.T) {
	router := newRouter(t, &stubStore{})
	rec := do(t, router, http.MethodPost, "/performance/documents/missing/launch", bearer(t, auth.RoleAdmin, "A1"), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := envelope(t, rec); env.Error == nil || env.Error.Code != "not_found" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestPayloadProblems(t *testing.T) {
	router := newRouter(t, &stubStore{})
	admin := bearer(t, auth.RoleAdmin, "A1")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed json", http.MethodPost, "/performance/employee-documents/promote", `{"ids":`, http.StatusBadRequest, "invalid_payload"},
		{"unknown field", http.MethodPost, "/performance/employee-documents/promote", `{"ids":["a"],"force":true}`, http.StatusBadRequest, "invalid_payload"},
		{"empty selection", http.MethodPost, "/performance/employee-documents/promote", `{"ids":[]}`, http.StatusConflict, "workflow_state"},
		{"bad dates", http.MethodPost, "/performance/review-periods", `{"name":"FY27","startDate":"2027-12-31","endDate":"2027-01-01"}`, http.StatusBadRequest, "validation_error"},
		{"missing person", http.MethodPost, "/performance/documents/PD1/employees", `{}`, http.StatusBadRequest, "validation_error"},
		{"bad status filter", http.MethodGet, "/performance/employee-documents?status=Nope", "", http.StatusBadRequest, "validation_error"},
		{"bad appraiser type", http.MethodPut, "/performance/appraisers", `{"performanceCycleId":"C1","employeePersonNumber":"E1","appraisers":[{"appraiserPersonNumber":"M1","appraiserType":"Boss","evalGoalTypes":"Work"}]}`, http.StatusBadRequest, "validation_error"},
		{"export without cycle", http.MethodGet, "/performance/appraisers/export", "", http.StatusBadRequest, "validation_error"},
		{"export bad format", http.MethodGet, "/performance/appraisers/export?cycleId=C1&format=pdf", "", http.StatusBadRequest, "validation_error"},
		{"import bad header", http.MethodPost, "/performance/appraisers/import", "a,b\n1,2\n", http.StatusBadRequest, "malformed_import"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, admin, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			env := envelope(t, rec)
			if env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("expected code %s, got %+v", tt.code, env.Error)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	svc := performance.NewService(&stubStore{}, &stubConfig{}, lov.Values{})
	h := NewHandler(svc, auth.StaticPermissions{}, 64, 0)
	r := chi.NewRouter()
	r.Use(middleware.Auth(testSecret))
	h.RegisterRoutes(r)

	body := `{"ids":["` + strings.Repeat("x", 200) + `"]}`
	rec := do(t, r, http.MethodPost, "/performance/employee-documents/promote", bearer(t, auth.RoleAdmin, "A1"), body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestExportMappingsCSV(t *testing.T) {
	store := &stubStore{mappings: []evaluation.AppraiserMapping{
		{EmployeePersonNumber: "E2", PerformanceCycleID: "C1", AppraiserPersonNumber: "M1", AppraiserType: evaluation.AppraiserPrimary,
			EvalGoalTypes: evaluation.NewGoalTypeSet(evaluation.GoalTypeWork)},
		{EmployeePersonNumber: "E1", PerformanceCycleID: "C1", AppraiserPersonNumber: "M2", AppraiserType: evaluation.AppraiserSecondary,
			EvalGoalTypes: evaluation.NewGoalTypeSet(evaluation.GoalTypeHome)},
		{EmployeePersonNumber: "E9", PerformanceCycleID: "C2", AppraiserPersonNumber: "M3", AppraiserType: evaluation.AppraiserPrimary,
			EvalGoalTypes: evaluation.NewGoalTypeSet(evaluation.GoalTypeWork)},
	}}
	router := newRouter(t, store)

	rec := do(t, router, http.MethodGet, "/performance/appraisers/export?cycleId=C1", bearer(t, auth.RoleHR, "H1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "appraisers-C1.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, performance.MappingCSVHeader) {
		t.Fatalf("missing header in %q", body)
	}
	if strings.Contains(body, "E9") {
		t.Fatalf("export leaked another cycle: %q", body)
	}
	if strings.Index(body, "E1,") > strings.Index(body, "E2,") {
		t.Fatalf("export not ordered by employee: %q", body)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &evaluation.ValidationError{Issues: []evaluation.Issue{{Field: "name", Reason: "is required"}}}, http.StatusBadRequest, "validation_error"},
		{"malformed", fmt.Errorf("%w: empty file", performance.ErrMalformedImport), http.StatusBadRequest, "malformed_import"},
		{"config", &evaluation.ConfigError{Subject: "performance document PD1", Err: performance.ErrMissingFlow}, http.StatusConflict, "configuration_error"},
		{"workflow", &evaluation.WorkflowError{Status: evaluation.TaskCloseDocument, Err: evaluation.ErrReadOnly}, http.StatusConflict, "workflow_state"},
		{"not found", fmt.Errorf("load: %w", performance.ErrNotFound), http.StatusNotFound, "not_found"},
		{"no eligible", performance.ErrNoEligible, http.StatusBadRequest, "no_eligible_employees"},
		{"already assigned", performance.ErrAlreadyAssigned, http.StatusConflict, "conflict"},
		{"not launched", performance.ErrNotLaunched, http.StatusConflict, "conflict"},
		{"not participant", performance.ErrNotParticipant, http.StatusForbidden, "forbidden"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "operation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "test", tt.err)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			env := envelope(t, rec)
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("unexpected envelope %+v", env)
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(env.Error.Message, "connection reset") {
				t.Fatalf("internal error leaked: %q", env.Error.Message)
			}
		})
	}
}
