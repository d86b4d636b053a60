package performance

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"appraisal/internal/domain/evaluation"
)

// SummaryPDF renders the caller's view of an employee document.
func (s *Service) SummaryPDF(ctx context.Context, actor Actor, employeeDocumentID string) ([]byte, error) {
	view, err := s.Access(ctx, actor, employeeDocumentID)
	if err != nil {
		return nil, err
	}
	employee, err := s.store.GetEmployee(ctx, view.Document.EmployeePersonNumber)
	if err != nil {
		return nil, err
	}
	return renderSummaryPDF(view, employee)
}

func renderSummaryPDF(view DocumentAccess, employee evaluation.Employee) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Performance Review Summary")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", employee.Name, employee.PersonNumber))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s", view.Document.Status))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Viewed as: %s", view.Role))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Appraisers")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	if len(view.Appraisers) == 0 {
		pdf.Cell(0, 6, "No appraisers assigned")
		pdf.Ln(6)
	}
	for _, m := range view.Appraisers {
		state := "pending"
		if m.IsCompleted {
			state = "completed"
		}
		pdf.Cell(0, 6, fmt.Sprintf("%s - %s appraiser, %s goals, %s", m.AppraiserPersonNumber, m.AppraiserType, m.EvalGoalTypes, state))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	goalNames := map[string]string{}
	for _, g := range view.Goals {
		goalNames[g.ID] = g.Name
	}
	for _, section := range view.Sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, section.Name)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		if section.ComputedRating != nil {
			pdf.Cell(0, 6, fmt.Sprintf("Calculated rating: %d", *section.ComputedRating))
			pdf.Ln(6)
		}
		rows := append(append([]Evaluation{}, section.OwnEvaluations...), section.CounterpartValues...)
		if len(rows) == 0 {
			pdf.Cell(0, 6, "No entries")
			pdf.Ln(6)
		}
		for _, e := range rows {
			pdf.MultiCell(0, 6, summaryLine(e, goalNames), "", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summaryLine(e Evaluation, goalNames map[string]string) string {
	parts := []string{string(e.EvaluatorRole)}
	if e.GoalID != "" {
		name := goalNames[e.GoalID]
		if name == "" {
			name = e.GoalID
		}
		parts = append(parts, "goal "+name)
	}
	if e.Rating != nil {
		parts = append(parts, fmt.Sprintf("rating %g", *e.Rating))
	}
	if e.Comment != "" {
		parts = append(parts, e.Comment)
	}
	return strings.Join(parts, " | ")
}
