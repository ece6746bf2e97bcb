package domain

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       Role
		permission string
		want       bool
	}{
		{RoleAdmin, PermVehiclesCreate, true},
		{RoleAdmin, PermUsersDelete, true},
		{RoleAdmin, PermSettingsUpdate, true},

		{RoleManager, PermVehiclesCreate, true},
		{RoleManager, PermVehiclesDelete, true},
		{RoleManager, PermUsersRead, false},
		{RoleManager, PermSettingsUpdate, false},

		{RoleViewer, PermVehiclesRead, true},
		{RoleViewer, PermVehiclesCreate, false},
		{RoleViewer, PermUsersRead, false},

		{Role("UNKNOWN"), PermVehiclesRead, false},
		{Role(""), PermVehiclesRead, false},
	}

	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.permission); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}

func TestPermissionHierarchy(t *testing.T) {
	// Every viewer permission is a manager permission, every manager
	// permission an admin permission.
	for _, p := range Permissions(RoleViewer) {
		if !HasPermission(RoleManager, p) {
			t.Errorf("manager should hold viewer permission %s", p)
		}
	}
	for _, p := range Permissions(RoleManager) {
		if !HasPermission(RoleAdmin, p) {
			t.Errorf("admin should hold manager permission %s", p)
		}
	}
}

func TestPermissionsReturnsCopy(t *testing.T) {
	perms := Permissions(RoleViewer)
	if len(perms) == 0 {
		t.Fatal("viewer has at least one permission")
	}
	perms[0] = "tampered"
	if HasPermission(RoleViewer, "tampered") {
		t.Error("mutating the returned slice must not affect the table")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleManager, RoleViewer} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "admin", "ROOT"} {
		if Role(r).Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}
