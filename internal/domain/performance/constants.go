package performance

const (
	EntityPerformanceDocument = "performance_document"
	EntityEmployeeDocument    = "employee_document"
	EntityAppraiserMapping    = "appraiser_mapping"

	GoalStatusActive = "active"

	// MappingCSVHeader is the fixed header of appraiser mapping import/export files.
	MappingCSVHeader = "EmployeePersonNumber,PerformanceCycleId,AppraiserPersonNumber,AppraiserType,EvalGoalTypes"
)
