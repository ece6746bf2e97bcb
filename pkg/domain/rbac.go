package domain

// Role is an account's access level.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleViewer  Role = "VIEWER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// Permission names follow "entity:action".
const (
	PermVehiclesCreate = "vehicles:create"
	PermVehiclesRead   = "vehicles:read"
	PermVehiclesUpdate = "vehicles:update"
	PermVehiclesDelete = "vehicles:delete"
	PermUsersCreate    = "users:create"
	PermUsersRead      = "users:read"
	PermUsersUpdate    = "users:update"
	PermUsersDelete    = "users:delete"
	PermSettingsUpdate = "settings:update"
)

// rolePermissions is the single source of truth for access decisions.
// Every mutating handler and every visibility check consults it through
// HasPermission; there is no second copy to drift.
var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermVehiclesCreate,
		PermVehiclesRead,
		PermVehiclesUpdate,
		PermVehiclesDelete,
		PermUsersCreate,
		PermUsersRead,
		PermUsersUpdate,
		PermUsersDelete,
		PermSettingsUpdate,
	},
	RoleManager: {
		PermVehiclesCreate,
		PermVehiclesRead,
		PermVehiclesUpdate,
		PermVehiclesDelete,
	},
	RoleViewer: {
		PermVehiclesRead,
	},
}

// HasPermission reports whether role holds the named permission.
// Pure lookup, no I/O.
func HasPermission(role Role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Permissions returns the permission set for a role. The returned slice is a
// copy and safe to modify.
func Permissions(role Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
