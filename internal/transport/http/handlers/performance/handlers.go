package performancehandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/performance"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

const (
	defaultBodyLimit   = 1 << 20
	defaultImportLimit = 10 << 20
)

type Handler struct {
	Service     *performance.Service
	Perms       middleware.PermissionStore
	BodyLimit   int64
	ImportLimit int64
}

func NewHandler(service *performance.Service, perms middleware.PermissionStore, bodyLimit, importLimit int64) *Handler {
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}
	if importLimit <= 0 {
		importLimit = defaultImportLimit
	}
	return &Handler{Service: service, Perms: perms, BodyLimit: bodyLimit, ImportLimit: importLimit}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPerformanceRead, h.Perms)
	configure := middleware.RequirePermission(auth.PermPerformanceConfigure, h.Perms)
	launch := middleware.RequirePermission(auth.PermPerformanceLaunch, h.Perms)
	evaluate := middleware.RequirePermission(auth.PermPerformanceEvaluate, h.Perms)
	promote := middleware.RequirePermission(auth.PermPerformancePromote, h.Perms)
	appraisers := middleware.RequirePermission(auth.PermAppraisersManage, h.Perms)

	r.Route("/performance", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(h.BodyLimit))

			r.With(read).Get("/review-periods", h.handleListReviewPeriods)
			r.With(configure).Post("/review-periods", h.handleCreateReviewPeriod)
			r.With(configure).Post("/review-periods/{periodID}/cycles", h.handleCreateCycle)
			r.With(configure).Post("/goal-plans", h.handleCreateGoalPlan)
			r.With(configure).Post("/goal-plans/{planID}/goals", h.handleCreateGoal)
			r.With(configure).Post("/templates", h.handleCreateTemplate)
			r.With(configure).Post("/templates/{templateID}/sections", h.handleCreateSection)
			r.With(configure).Put("/templates/{templateID}/sections/order", h.handleReorderSections)
			r.With(configure).Post("/evaluation-flows", h.handleCreateFlow)
			r.With(configure).Post("/eligibilities", h.handleCreateEligibility)
			r.With(configure).Put("/technologist-weights", h.handleSaveTechnologistWeight)
			r.With(configure).Post("/documents", h.handleCreateDocument)
			r.With(configure).Put("/documents/{documentID}", h.handleUpdateDocumentSections)

			r.With(launch).Post("/documents/{documentID}/launch", h.handleLaunch)
			r.With(launch).Post("/documents/{documentID}/employees", h.handleAddEmployee)

			r.With(read).Get("/employee-documents", h.handleListEmployeeDocuments)
			r.With(read).Get("/employee-documents/{docID}/access", h.handleAccess)
			r.With(read).Get("/employee-documents/{docID}/summary.pdf", h.handleSummaryPDF)
			r.With(evaluate).Post("/employee-documents/{docID}/submit", h.handleSubmit)
			r.With(promote).Post("/employee-documents/promote", h.handlePromote)

			r.With(appraisers).Put("/appraisers", h.handleReplaceAppraisers)
			r.With(appraisers).Get("/appraisers/export", h.handleExportMappings)
		})
		r.With(appraisers, middleware.BodyLimit(h.ImportLimit)).Post("/appraisers/import", h.handleImportMappings)
	})
}

// actor builds the service caller from the authenticated user. RequirePermission guarantees a user.
func actor(r *http.Request) performance.Actor {
	user, _ := middleware.GetUser(r.Context())
	return performance.Actor{
		UserID:       user.UserID,
		PersonNumber: user.PersonNumber,
		HR:           auth.IsHR(user.RoleName),
		RequestID:    middleware.GetRequestID(r.Context()),
	}
}

// decode reads a JSON payload, answering 400 or 413 itself when it fails.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", middleware.GetRequestID(r.Context()))
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}
