package performance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"appraisal/internal/domain/evaluation"
)

const mappingSheet = "Appraisers"

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported format %q", value)
}

func ReadMappings(r io.Reader, format Format) ([]evaluation.AppraiserMapping, error) {
	if format == FormatXLSX {
		return ReadMappingsXLSX(r)
	}
	return ReadMappingsCSV(r)
}

func WriteMappings(w io.Writer, format Format, mappings []evaluation.AppraiserMapping) error {
	if format == FormatXLSX {
		return WriteMappingsXLSX(w, mappings)
	}
	return WriteMappingsCSV(w, mappings)
}

var mappingColumns = strings.Split(MappingCSVHeader, ",")

// ReadMappingsCSV parses an appraiser mapping upload. Any malformed row rejects the file.
func ReadMappingsCSV(r io.Reader) ([]evaluation.AppraiserMapping, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	return parseMappingRows(records)
}

// ReadMappingsXLSX parses the first sheet of a workbook with the same columns as the CSV.
func ReadMappingsXLSX(r io.Reader) ([]evaluation.AppraiserMapping, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	return parseMappingRows(rows)
}

func parseMappingRows(records [][]string) ([]evaluation.AppraiserMapping, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedImport)
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) != len(mappingColumns) {
		return nil, fmt.Errorf("%w: header must be %s", ErrMalformedImport, MappingCSVHeader)
	}
	for i, col := range mappingColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, fmt.Errorf("%w: header must be %s", ErrMalformedImport, MappingCSVHeader)
		}
	}

	var issues evaluation.Issues
	var out []evaluation.AppraiserMapping
	for i, record := range records[1:] {
		line := fmt.Sprintf("row %d", i+2)
		if isBlank(record) {
			continue
		}
		if len(record) != len(mappingColumns) {
			issues.Add(line, fmt.Sprintf("expected %d columns, got %d", len(mappingColumns), len(record)))
			continue
		}
		m := evaluation.AppraiserMapping{
			EmployeePersonNumber:  strings.TrimSpace(record[0]),
			PerformanceCycleID:    strings.TrimSpace(record[1]),
			AppraiserPersonNumber: strings.TrimSpace(record[2]),
		}
		issues.Required(line+"."+mappingColumns[0], m.EmployeePersonNumber)
		issues.Required(line+"."+mappingColumns[1], m.PerformanceCycleID)
		issues.Required(line+"."+mappingColumns[2], m.AppraiserPersonNumber)

		kind, err := evaluation.ParseAppraiserType(record[3])
		if err != nil {
			issues.Add(line+"."+mappingColumns[3], err.Error())
		}
		m.AppraiserType = kind

		types, err := evaluation.ParseGoalTypeSet(record[4])
		if err != nil {
			issues.Add(line+"."+mappingColumns[4], err.Error())
		}
		m.EvalGoalTypes = types
		out = append(out, m)
	}
	if err := issues.Err(); err != nil {
		return nil, errors.Join(ErrMalformedImport, err)
	}
	return out, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func mappingRecord(m evaluation.AppraiserMapping) []string {
	return []string{
		m.EmployeePersonNumber,
		m.PerformanceCycleID,
		m.AppraiserPersonNumber,
		string(m.AppraiserType),
		m.EvalGoalTypes.String(),
	}
}

func WriteMappingsCSV(w io.Writer, mappings []evaluation.AppraiserMapping) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(mappingColumns); err != nil {
		return err
	}
	for _, m := range mappings {
		if err := writer.Write(mappingRecord(m)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteMappingsXLSX(w io.Writer, mappings []evaluation.AppraiserMapping) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), mappingSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(mappingSheet, "A1", &mappingColumns); err != nil {
		return err
	}
	if err := f.SetCellStyle(mappingSheet, "A1", "E1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(mappingSheet, "A", "E", 24); err != nil {
		return err
	}
	for i, m := range mappings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		record := mappingRecord(m)
		if err := f.SetSheetRow(mappingSheet, cell, &record); err != nil {
			return err
		}
	}
	return f.Write(w)
}
