package performancehandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/performance"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

func (h *Handler) handleLaunch(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Launch(r.Context(), actor(r), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, r, "launch performance document", err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddEmployee(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonNumber string `json:"personNumber"`
	}
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("personNumber", payload.PersonNumber, "personNumber is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	result, err := h.Service.AddEmployee(r.Context(), actor(r), chi.URLParam(r, "documentID"), strings.TrimSpace(payload.PersonNumber))
	if err != nil {
		writeError(w, r, "add employee", err)
		return
	}
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployeeDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := performance.DocumentFilter{
		PerformanceDocumentID: strings.TrimSpace(q.Get("performanceDocumentId")),
		PerformanceCycleID:    strings.TrimSpace(q.Get("performanceCycleId")),
		EmployeePersonNumber:  strings.TrimSpace(q.Get("employeePersonNumber")),
		IDs:                   shared.QueryList(r, "id"),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := evaluation.ParseTask(raw)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "status", Reason: err.Error()}})
			return
		}
		filter.Status = status
	}
	docs, err := h.Service.ListEmployeeDocuments(r.Context(), actor(r), filter)
	if err != nil {
		writeError(w, r, "list employee documents", err)
		return
	}
	api.Success(w, docs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	access, err := h.Service.Access(r.Context(), actor(r), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, r, "document access", err)
		return
	}
	api.Success(w, access, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	pdf, err := h.Service.SummaryPDF(r.Context(), actor(r), docID)
	if err != nil {
		writeError(w, r, "summary pdf", err)
		return
	}
	api.Attachment(w, "application/pdf", "appraisal-"+docID+".pdf", pdf)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Entries []evaluation.Entry `json:"entries"`
	}
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.Service.Submit(r.Context(), actor(r), chi.URLParam(r, "docID"), payload.Entries)
	if err != nil {
		writeError(w, r, "submit evaluation", err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.Service.Promote(r.Context(), actor(r), payload.IDs)
	if err != nil {
		writeError(w, r, "promote documents", err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}
