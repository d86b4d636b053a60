package performance

import (
	"context"
	"sort"
)

// ListEmployeeDocuments returns the documents the caller may open. HR sees every document
// matching filter; everyone else sees their own and the ones they appraise.
func (s *Service) ListEmployeeDocuments(ctx context.Context, actor Actor, filter DocumentFilter) ([]EmployeeDocument, error) {
	if actor.HR {
		return s.store.ListEmployeeDocuments(ctx, filter)
	}
	if actor.PersonNumber == "" {
		return nil, ErrNotParticipant
	}

	seen := map[string]bool{}
	var out []EmployeeDocument
	add := func(docs []EmployeeDocument) {
		for _, d := range docs {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
		}
	}

	own := filter
	own.EmployeePersonNumber = actor.PersonNumber
	if filter.EmployeePersonNumber == "" || filter.EmployeePersonNumber == actor.PersonNumber {
		docs, err := s.store.ListEmployeeDocuments(ctx, own)
		if err != nil {
			return nil, err
		}
		add(docs)
	}

	appraised, err := s.store.ListAppraiserMappings(ctx, MappingFilter{
		PerformanceCycleID:    filter.PerformanceCycleID,
		AppraiserPersonNumber: actor.PersonNumber,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range appraised {
		if filter.EmployeePersonNumber != "" && filter.EmployeePersonNumber != m.EmployeePersonNumber {
			continue
		}
		f := filter
		f.EmployeePersonNumber = m.EmployeePersonNumber
		f.PerformanceCycleID = m.PerformanceCycleID
		docs, err := s.store.ListEmployeeDocuments(ctx, f)
		if err != nil {
			return nil, err
		}
		add(docs)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeePersonNumber != out[j].EmployeePersonNumber {
			return out[i].EmployeePersonNumber < out[j].EmployeePersonNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
