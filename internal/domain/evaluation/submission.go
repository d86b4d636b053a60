package evaluation

// IsReadOnly is the document-level gate applied before any per-section permission.
// own is the acting appraiser's mapping and may be nil for other roles.
func IsReadOnly(status Task, role Role, own *AppraiserMapping) bool {
	if !status.OwnedBy(role) {
		return true
	}
	if role == RoleSecondaryAppraiser && status == TaskManagerEvaluation && own != nil && own.IsCompleted {
		return true
	}
	return false
}

type SubmissionOutcome struct {
	// Advance is true when the document should move to the next step.
	Advance bool
	// MarkCompleted is true when the acting appraiser's mapping must be flagged completed.
	MarkCompleted bool
}

// DecideSubmission applies the role-specific trigger rules for a submit action.
// others are the remaining appraiser mappings of the same employee and cycle.
func DecideSubmission(status Task, role Role, own *AppraiserMapping, others []AppraiserMapping) (SubmissionOutcome, error) {
	if IsReadOnly(status, role, own) {
		return SubmissionOutcome{}, &WorkflowError{Status: status, Role: role, Err: ErrReadOnly}
	}
	if status != TaskManagerEvaluation {
		return SubmissionOutcome{Advance: true}, nil
	}

	switch role {
	case RoleSecondaryAppraiser:
		return SubmissionOutcome{MarkCompleted: own != nil}, nil
	case RolePrimaryAppraiser:
		if !AllCompleted(others) {
			return SubmissionOutcome{}, nil
		}
		return SubmissionOutcome{Advance: true, MarkCompleted: own != nil}, nil
	}
	return SubmissionOutcome{}, &WorkflowError{Status: status, Role: role, Err: ErrReadOnly}
}

func AllCompleted(mappings []AppraiserMapping) bool {
	for _, m := range mappings {
		if !m.IsCompleted {
			return false
		}
	}
	return true
}

// SplitMappings separates the mapping owned by appraiser from the rest.
func SplitMappings(mappings []AppraiserMapping, appraiser string) (*AppraiserMapping, []AppraiserMapping) {
	var own *AppraiserMapping
	others := make([]AppraiserMapping, 0, len(mappings))
	for i := range mappings {
		if own == nil && mappings[i].AppraiserPersonNumber == appraiser {
			m := mappings[i]
			own = &m
			continue
		}
		others = append(others, mappings[i])
	}
	return own, others
}
