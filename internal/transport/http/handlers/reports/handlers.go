package reportshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/reports"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

type Reporter interface {
	CycleProgress(ctx context.Context, cycleID string) (reports.CycleProgress, error)
	Dashboard(ctx context.Context, personNumber string) (reports.PersonalDashboard, error)
}

type Handler struct {
	Reports Reporter
	Perms   middleware.PermissionStore
}

func NewHandler(service Reporter, perms middleware.PermissionStore) *Handler {
	return &Handler{Reports: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPerformanceRead, h.Perms)).Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/cycles/{cycleID}/progress", h.handleCycleProgress)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	dash, err := h.Reports.Dashboard(r.Context(), user.PersonNumber)
	if err != nil {
		slog.Error("dashboard failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dash, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCycleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.Reports.CycleProgress(r.Context(), chi.URLParam(r, "cycleID"))
	if errors.Is(err, reports.ErrCycleRequired) {
		api.Fail(w, http.StatusBadRequest, "invalid_cycle", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Error("cycle progress failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, progress, middleware.GetRequestID(r.Context()))
}
