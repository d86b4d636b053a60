package performancehandler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/performance"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type appraiserPayload struct {
	AppraiserPersonNumber string `json:"appraiserPersonNumber"`
	AppraiserType         string `json:"appraiserType"`
	EvalGoalTypes         string `json:"evalGoalTypes"`
}

func (h *Handler) handleReplaceAppraisers(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PerformanceCycleID   string             `json:"performanceCycleId"`
		EmployeePersonNumber string             `json:"employeePersonNumber"`
		Appraisers           []appraiserPayload `json:"appraisers"`
	}
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	mappings := make([]evaluation.AppraiserMapping, 0, len(payload.Appraisers))
	for i, a := range payload.Appraisers {
		field := fmt.Sprintf("appraisers[%d]", i)
		appraiserType, err := evaluation.ParseAppraiserType(a.AppraiserType)
		if err != nil {
			v.Add(field+".appraiserType", err.Error())
		}
		goalTypes, err := evaluation.ParseGoalTypeSet(a.EvalGoalTypes)
		if err != nil {
			v.Add(field+".evalGoalTypes", err.Error())
		}
		mappings = append(mappings, evaluation.AppraiserMapping{
			AppraiserPersonNumber: strings.TrimSpace(a.AppraiserPersonNumber),
			AppraiserType:         appraiserType,
			EvalGoalTypes:         goalTypes,
		})
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	cycleID := strings.TrimSpace(payload.PerformanceCycleID)
	employee := strings.TrimSpace(payload.EmployeePersonNumber)
	if err := h.Service.ReplaceAppraisers(r.Context(), actor(r), cycleID, employee, mappings); err != nil {
		writeError(w, r, "replace appraisers", err)
		return
	}
	api.Success(w, map[string]any{
		"performanceCycleId":   cycleID,
		"employeePersonNumber": employee,
		"appraisers":           len(mappings),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportMappings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	cycleID := strings.TrimSpace(r.URL.Query().Get("cycleId"))
	v := shared.NewValidator()
	v.Required("cycleId", cycleID, "cycleId is required")
	format, err := performance.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		v.Add("format", err.Error())
	}
	if v.Reject(w, reqID) {
		return
	}

	mappings, err := h.Service.ExportMappings(r.Context(), cycleID)
	if err != nil {
		writeError(w, r, "export appraisers", err)
		return
	}
	var buf bytes.Buffer
	if err := performance.WriteMappings(&buf, format, mappings); err != nil {
		writeError(w, r, "export appraisers", err)
		return
	}
	contentType := "text/csv; charset=utf-8"
	if format == performance.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	api.Attachment(w, contentType, "appraisers-"+cycleID+"."+string(format), buf.Bytes())
}

// handleImportMappings accepts a multipart "file" field or the raw file as the body.
// The format comes from ?format= or the uploaded file name, defaulting to CSV.
func (h *Handler) handleImportMappings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	body, filename, err := importBody(r, h.ImportLimit)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "import file too large", reqID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
		return
	}
	defer body.Close()

	rawFormat := r.URL.Query().Get("format")
	if rawFormat == "" && filename != "" {
		rawFormat = strings.TrimPrefix(filepath.Ext(filename), ".")
	}
	format, err := performance.ParseFormat(rawFormat)
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "format", Reason: err.Error()}})
		return
	}

	result, err := h.Service.ImportMappings(r.Context(), actor(r), body, format)
	if err != nil {
		writeError(w, r, "import appraisers", err)
		return
	}
	api.Success(w, result, reqID)
}

func importBody(r *http.Request, limit int64) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, "", nil
	}
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("multipart field \"file\" is required")
	}
	return file, header.Filename, nil
}
