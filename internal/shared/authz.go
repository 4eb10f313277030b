package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView   = "roles.view"
	PermRolesEdit   = "roles.edit"
	PermRolesAssign = "roles.assign"

	PermPermissionsView = "permissions.view"
)

// Security posture permissions.
const (
	PermSecurityView     = "security.view"
	PermSecurityManage   = "security.manage"
	PermIncidentsManage  = "security.incidents"
	PermActivitiesTriage = "security.activities"
	PermBackupsManage    = "security.backups"
	PermAuditView        = "audit.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermRolesAssign,
		PermPermissionsView,
	}
}

// SecurityScopes lists all permissions guarding the security dashboard.
func SecurityScopes() []string {
	return []string{
		PermSecurityView,
		PermSecurityManage,
		PermIncidentsManage,
		PermActivitiesTriage,
		PermBackupsManage,
		PermAuditView,
	}
}
