package performance

import (
	"context"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/evaluation"
)

// Promote moves a homogeneous selection of employee documents to their shared next status.
// The selection is checked in full before the batch; a document that moved on in the
// meantime aborts the whole batch.
func (s *Service) Promote(ctx context.Context, actor Actor, ids []string) (PromoteResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return PromoteResult{}, &evaluation.WorkflowError{Err: evaluation.ErrEmptySelection}
	}

	docs := make([]EmployeeDocument, 0, len(ids))
	states := make([]evaluation.DocumentState, 0, len(ids))
	perfIDs := map[string]bool{}
	for _, id := range ids {
		doc, err := s.store.GetEmployeeDocument(ctx, id)
		if err != nil {
			return PromoteResult{}, err
		}
		docs = append(docs, doc)
		states = append(states, evaluation.DocumentState{ID: doc.ID, CycleID: doc.PerformanceCycleID, Status: doc.Status})
		perfIDs[doc.PerformanceDocumentID] = true
	}

	var flowID string
	var perf PerformanceDocument
	for perfID := range perfIDs {
		p, err := s.store.GetPerformanceDocument(ctx, perfID)
		if err != nil {
			return PromoteResult{}, err
		}
		if flowID != "" && p.FlowID != flowID {
			return PromoteResult{}, &evaluation.WorkflowError{Status: docs[0].Status, Err: evaluation.ErrMixedSelection}
		}
		flowID, perf = p.FlowID, p
	}
	if flowID == "" {
		return PromoteResult{}, &evaluation.ConfigError{Subject: "performance document " + perf.Name, Err: ErrMissingFlow}
	}
	flow, err := s.store.GetFlow(ctx, flowID)
	if err != nil {
		return PromoteResult{}, err
	}

	from := docs[0].Status
	next, err := evaluation.PromoteBulk(flow, states)
	if err != nil {
		return PromoteResult{}, err
	}

	err = s.store.InTx(ctx, func(w Writer) error {
		for _, doc := range docs {
			ok, err := w.UpdateEmployeeDocumentStatus(ctx, doc.ID, from, next)
			if err != nil {
				return err
			}
			if !ok {
				return &evaluation.WorkflowError{Status: from, Err: evaluation.ErrStaleStatus}
			}
		}
		return nil
	})
	if err != nil {
		return PromoteResult{}, err
	}

	result := PromoteResult{From: from, To: next, Promoted: len(docs)}
	s.record(ctx, actor, audit.ActionPromote, EntityEmployeeDocument, docs[0].PerformanceCycleID, map[string]any{
		"ids":  ids,
		"from": from,
		"to":   next,
	})
	for _, doc := range docs {
		s.notifyAdvanced(ctx, perf, doc.EmployeePersonNumber, nil, next)
	}
	return result, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
