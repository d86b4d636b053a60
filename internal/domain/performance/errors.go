package performance

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyLaunched    = errors.New("performance document already launched")
	ErrNotLaunched        = errors.New("performance document has not been launched")
	ErrNoEligible         = errors.New("no eligible employees")
	ErrMissingFlow        = errors.New("performance document has no evaluation flow")
	ErrMissingEligibility = errors.New("performance document has no eligibility")
	ErrAlreadyAssigned    = errors.New("employee already has a document for this performance document")
	ErrNotParticipant     = errors.New("caller takes no part in this document")
	ErrMalformedImport    = errors.New("malformed appraiser mapping file")
)
