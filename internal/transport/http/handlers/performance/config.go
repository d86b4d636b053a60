package performancehandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/performance"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type periodPayload struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// dates parses both bounds, leaving issues on v for the caller to reject.
func (p periodPayload) dates(v *shared.Validator) (time.Time, time.Time) {
	start, okStart := v.Date("startDate", p.StartDate)
	end, okEnd := v.Date("endDate", p.EndDate)
	if okStart && okEnd {
		v.DateOrder("startDate", start, "endDate", end)
	}
	return start, end
}

func (h *Handler) handleListReviewPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Service.ListReviewPeriods(r.Context())
	if err != nil {
		writeError(w, r, "list review periods", err)
		return
	}
	api.Success(w, periods, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateReviewPeriod(w http.ResponseWriter, r *http.Request) {
	var payload periodPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	start, end := payload.dates(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	period, err := h.Service.CreateReviewPeriod(r.Context(), performance.ReviewPeriod{
		Name:      payload.Name,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeError(w, r, "create review period", err)
		return
	}
	api.Created(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	var payload periodPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	start, end := payload.dates(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	cycle, err := h.Service.CreateCycle(r.Context(), performance.PerformanceCycle{
		ReviewPeriodID: chi.URLParam(r, "periodID"),
		Name:           payload.Name,
		StartDate:      start,
		EndDate:        end,
	})
	if err != nil {
		writeError(w, r, "create cycle", err)
		return
	}
	api.Created(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateGoalPlan(w http.ResponseWriter, r *http.Request) {
	var payload performance.GoalPlan
	if !decode(w, r, &payload) {
		return
	}
	payload.ID = ""
	plan, err := h.Service.CreateGoalPlan(r.Context(), payload)
	if err != nil {
		writeError(w, r, "create goal plan", err)
		return
	}
	api.Created(w, plan, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name             string   `json:"name"`
		Type             string   `json:"type"`
		TechnologistType string   `json:"technologistType"`
		Weight           *float64 `json:"weight"`
		Status           string   `json:"status"`
	}
	if !decode(w, r, &payload) {
		return
	}
	goalType := evaluation.GoalType(payload.Type)
	if parsed, err := evaluation.ParseGoalType(payload.Type); err == nil {
		goalType = parsed
	}
	goal, err := h.Service.CreateGoal(r.Context(), evaluation.Goal{
		GoalPlanID:       chi.URLParam(r, "planID"),
		Name:             payload.Name,
		Type:             goalType,
		TechnologistType: payload.TechnologistType,
		Weight:           payload.Weight,
		Status:           payload.Status,
	})
	if err != nil {
		writeError(w, r, "create goal", err)
		return
	}
	api.Created(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var payload performance.Template
	if !decode(w, r, &payload) {
		return
	}
	payload.ID = ""
	tpl, err := h.Service.CreateTemplate(r.Context(), payload)
	if err != nil {
		writeError(w, r, "create template", err)
		return
	}
	api.Created(w, tpl, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var payload evaluation.Section
	if !decode(w, r, &payload) {
		return
	}
	payload.ID = ""
	payload.TemplateID = chi.URLParam(r, "templateID")
	section, err := h.Service.CreateSection(r.Context(), payload)
	if err != nil {
		writeError(w, r, "create section", err)
		return
	}
	api.Created(w, section, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReorderSections(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SectionIDs []string `json:"sectionIds"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if err := h.Service.ReorderSections(r.Context(), chi.URLParam(r, "templateID"), payload.SectionIDs); err != nil {
		writeError(w, r, "reorder sections", err)
		return
	}
	api.Success(w, map[string]any{"sectionIds": payload.SectionIDs}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var payload evaluation.EvaluationFlow
	if !decode(w, r, &payload) {
		return
	}
	payload.ID = ""
	flow, err := h.Service.CreateFlow(r.Context(), payload)
	if err != nil {
		writeError(w, r, "create evaluation flow", err)
		return
	}
	api.Created(w, flow, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEligibility(w http.ResponseWriter, r *http.Request) {
	var payload evaluation.Eligibility
	if !decode(w, r, &payload) {
		return
	}
	payload.ID = ""
	eligibility, err := h.Service.CreateEligibility(r.Context(), payload)
	if err != nil {
		writeError(w, r, "create eligibility", err)
		return
	}
	api.Created(w, eligibility, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveTechnologistWeight(w http.ResponseWriter, r *http.Request) {
	var payload evaluation.TechnologistWeight
	if !decode(w, r, &payload) {
		return
	}
	weight, err := h.Service.SaveTechnologistWeight(r.Context(), payload)
	if err != nil {
		writeError(w, r, "save technologist weight", err)
		return
	}
	api.Success(w, weight, middleware.GetRequestID(r.Context()))
}

type documentPayload struct {
	Name               string   `json:"name"`
	ReviewPeriodID     string   `json:"reviewPeriodId"`
	PerformanceCycleID string   `json:"performanceCycleId"`
	GoalPlanID         string   `json:"goalPlanId"`
	TemplateID         string   `json:"templateId"`
	FlowID             string   `json:"flowId"`
	EligibilityID      string   `json:"eligibilityId"`
	SectionIDs         []string `json:"sectionIds"`
}

func (h *Handler) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var payload documentPayload
	if !decode(w, r, &payload) {
		return
	}
	doc, err := h.Service.CreatePerformanceDocument(r.Context(), performance.PerformanceDocument{
		Name:               payload.Name,
		ReviewPeriodID:     payload.ReviewPeriodID,
		PerformanceCycleID: payload.PerformanceCycleID,
		GoalPlanID:         payload.GoalPlanID,
		TemplateID:         payload.TemplateID,
		FlowID:             payload.FlowID,
		EligibilityID:      payload.EligibilityID,
		SectionIDs:         payload.SectionIDs,
	})
	if err != nil {
		writeError(w, r, "create performance document", err)
		return
	}
	api.Created(w, doc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDocumentSections(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SectionIDs []string `json:"sectionIds"`
	}
	if !decode(w, r, &payload) {
		return
	}
	doc, err := h.Service.UpdateDocumentSections(r.Context(), chi.URLParam(r, "documentID"), payload.SectionIDs)
	if err != nil {
		writeError(w, r, "update performance document", err)
		return
	}
	api.Success(w, doc, middleware.GetRequestID(r.Context()))
}
