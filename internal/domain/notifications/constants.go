package notifications

const (
	TypeReviewAssigned    = "review_assigned"
	TypeEvaluationShared  = "evaluation_submitted"
	TypeDocumentAdvanced  = "document_advanced"
	TypeAppraiserAssigned = "appraiser_assigned"
)
