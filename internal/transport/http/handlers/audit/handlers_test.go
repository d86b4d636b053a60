package audithandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/transport/http/middleware"
)

type fakeEvents struct {
	events []audit.Event
	filter audit.Filter
	limit  int
}

func (f *fakeEvents) List(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	f.filter, f.limit = filter, limit
	return f.events, nil
}

func serve(events *fakeEvents, role, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", PersonNumber: "P1", RoleName: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(events, auth.StaticPermissions{}).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListEventsPassesFilter(t *testing.T) {
	events := &fakeEvents{events: []audit.Event{{ID: "a1", Action: audit.ActionLaunch, EntityType: "performance_document", EntityID: "PD1"}}}
	rec := serve(events, auth.RoleHR, "/audit/events?action=performance.launch&entityId=PD1&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if events.filter.Action != audit.ActionLaunch || events.filter.EntityID != "PD1" || events.limit != 10 {
		t.Fatalf("unexpected filter %+v limit %d", events.filter, events.limit)
	}
	if !strings.Contains(rec.Body.String(), `"a1"`) {
		t.Fatalf("missing event in %s", rec.Body.String())
	}
}

func TestEmployeesCannotReadAudit(t *testing.T) {
	rec := serve(&fakeEvents{}, auth.RoleEmployee, "/audit/events")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestExportEventsCSV(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	events := &fakeEvents{events: []audit.Event{{ID: "a1", ActorID: "u1", Action: audit.ActionPromote, EntityType: "employee_document", EntityID: "D1", RequestID: "r1", CreatedAt: at}}}
	rec := serve(events, auth.RoleAdmin, "/audit/events/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", rec.Body.String())
	}
	if lines[1] != "a1,u1,performance.promote,employee_document,D1,r1,2026-03-01T09:30:00Z" {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if events.limit != exportLimit {
		t.Fatalf("expected export limit, got %d", events.limit)
	}
}
