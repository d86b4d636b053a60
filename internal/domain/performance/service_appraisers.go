package performance

import (
	"context"
	"fmt"
	"io"
	"sort"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/notifications"
)

// ReplaceAppraisers swaps the full appraiser set of one employee and cycle in one batch.
func (s *Service) ReplaceAppraisers(ctx context.Context, actor Actor, cycleID, employeePersonNumber string, mappings []evaluation.AppraiserMapping) error {
	group, err := s.normalizeGroup(cycleID, employeePersonNumber, mappings)
	if err != nil {
		return err
	}
	if err := s.store.InTx(ctx, func(w Writer) error { return replaceGroup(ctx, w, group) }); err != nil {
		return err
	}
	s.afterReplace(ctx, actor, audit.ActionReplaceMappings, group)
	return nil
}

func (s *Service) normalizeGroup(cycleID, employeePersonNumber string, mappings []evaluation.AppraiserMapping) (mappingGroup, error) {
	var issues evaluation.Issues
	issues.Required("performanceCycleId", cycleID)
	issues.Required("employeePersonNumber", employeePersonNumber)
	if err := issues.Err(); err != nil {
		return mappingGroup{}, err
	}
	out := make([]evaluation.AppraiserMapping, len(mappings))
	for i, m := range mappings {
		m.ID = s.NewID()
		m.EmployeePersonNumber = employeePersonNumber
		m.PerformanceCycleID = cycleID
		out[i] = m
	}
	if err := evaluation.ValidateAppraiserGroup(employeePersonNumber, out); err != nil {
		return mappingGroup{}, err
	}
	return mappingGroup{cycleID: cycleID, employee: employeePersonNumber, mappings: out}, nil
}

type mappingGroup struct {
	cycleID  string
	employee string
	mappings []evaluation.AppraiserMapping
}

func replaceGroup(ctx context.Context, w Writer, group mappingGroup) error {
	if err := w.DeleteAppraiserMappings(ctx, group.employee, group.cycleID); err != nil {
		return err
	}
	for _, m := range group.mappings {
		if err := w.CreateAppraiserMapping(ctx, m); err != nil {
			return fmt.Errorf("create appraiser mapping %s: %w", m.AppraiserPersonNumber, err)
		}
	}
	return nil
}

func (s *Service) afterReplace(ctx context.Context, actor Actor, action string, group mappingGroup) {
	s.record(ctx, actor, action, EntityAppraiserMapping, group.employee, map[string]any{
		"performanceCycleId": group.cycleID,
		"appraisers":         group.mappings,
	})
	for _, m := range group.mappings {
		s.notify(ctx, m.AppraiserPersonNumber, notifications.TypeAppraiserAssigned, "Appraiser assignment",
			fmt.Sprintf("You are %s appraiser of %s (%s goals).", m.AppraiserType, m.EmployeePersonNumber, m.EvalGoalTypes))
	}
}

// ImportMappings replaces the appraisers of every (employee, cycle) group found in the file.
// The whole file is parsed and validated before the first group is written; each group is
// then its own batch.
func (s *Service) ImportMappings(ctx context.Context, actor Actor, r io.Reader, format Format) (ImportResult, error) {
	rows, err := ReadMappings(r, format)
	if err != nil {
		return ImportResult{}, err
	}

	type key struct{ employee, cycle string }
	grouped := map[key][]evaluation.AppraiserMapping{}
	var keys []key
	for _, m := range rows {
		k := key{m.EmployeePersonNumber, m.PerformanceCycleID}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], m)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].cycle != keys[j].cycle {
			return keys[i].cycle < keys[j].cycle
		}
		return keys[i].employee < keys[j].employee
	})

	groups := make([]mappingGroup, 0, len(keys))
	var issues evaluation.Issues
	for _, k := range keys {
		group, err := s.normalizeGroup(k.cycle, k.employee, grouped[k])
		if err != nil {
			issues.Add(k.employee+"/"+k.cycle, err.Error())
			continue
		}
		groups = append(groups, group)
	}
	if err := issues.Err(); err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	for _, group := range groups {
		if err := s.store.InTx(ctx, func(w Writer) error { return replaceGroup(ctx, w, group) }); err != nil {
			return result, fmt.Errorf("import group %s/%s: %w", group.employee, group.cycleID, err)
		}
		result.Groups++
		result.Mappings += len(group.mappings)
		s.afterReplace(ctx, actor, audit.ActionImportMappings, group)
	}
	return result, nil
}

// ExportMappings lists the appraiser mappings of a cycle in a stable order.
func (s *Service) ExportMappings(ctx context.Context, cycleID string) ([]evaluation.AppraiserMapping, error) {
	mappings, err := s.store.ListAppraiserMappings(ctx, MappingFilter{PerformanceCycleID: cycleID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		a, b := mappings[i], mappings[j]
		if a.EmployeePersonNumber != b.EmployeePersonNumber {
			return a.EmployeePersonNumber < b.EmployeePersonNumber
		}
		if a.AppraiserType != b.AppraiserType {
			return a.AppraiserType == evaluation.AppraiserPrimary
		}
		return a.AppraiserPersonNumber < b.AppraiserPersonNumber
	})
	return mappings, nil
}
