package auth

import "context"

const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleEmployee = "employee"
)

const (
	PermPerformanceRead      = "performance.read"
	PermPerformanceConfigure = "performance.configure"
	PermPerformanceLaunch    = "performance.launch"
	PermPerformanceEvaluate  = "performance.evaluate"
	PermPerformancePromote   = "performance.promote"
	PermAppraisersManage     = "performance.appraisers"
	PermNotificationsRead    = "notifications.read"
	PermAuditRead            = "audit.read"
	PermReportsRead          = "reports.read"
)

var DefaultPermissions = []string{
	PermPerformanceRead,
	PermPerformanceConfigure,
	PermPerformanceLaunch,
	PermPerformanceEvaluate,
	PermPerformancePromote,
	PermAppraisersManage,
	PermNotificationsRead,
	PermAuditRead,
	PermReportsRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermPerformanceRead,
		PermPerformanceEvaluate,
		PermNotificationsRead,
	},
	RoleHR: {
		PermPerformanceRead,
		PermPerformanceEvaluate,
		PermPerformancePromote,
		PermAppraisersManage,
		PermNotificationsRead,
		PermAuditRead,
		PermReportsRead,
	},
	RoleAdmin: {
		PermPerformanceRead,
		PermPerformanceConfigure,
		PermPerformanceLaunch,
		PermPerformanceEvaluate,
		PermPerformancePromote,
		PermAppraisersManage,
		PermNotificationsRead,
		PermAuditRead,
		PermReportsRead,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, roleName, permission string) (bool, error) {
	for _, perm := range RolePermissions[roleName] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}

// IsHR reports whether the role acts as HR inside the evaluation workflow.
func IsHR(roleName string) bool {
	return roleName == RoleHR || roleName == RoleAdmin
}
