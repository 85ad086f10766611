package permission

// Role is the single role an authenticated HRM session carries. It is immutable for the
// lifetime of a token; a new role needs a new login.
type Role string

const (
	RoleCEO      Role = "CEO"
	RoleHR       Role = "HR"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

// Roles lists the fixed role set in display order.
func Roles() []Role {
	return []Role{RoleCEO, RoleHR, RoleManager, RoleEmployee}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCEO, RoleHR, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// Capability names a permission flag checked by views and route guards.
type Capability string

const (
	CanViewDashboard     Capability = "canViewDashboard"
	CanManageEmployees   Capability = "canManageEmployees"
	CanManageDepartments Capability = "canManageDepartments"
	CanManageLeave       Capability = "canManageLeave"
	CanViewReports       Capability = "canViewReports"
	CanManageSettings    Capability = "canManageSettings"
	CanRegisterUsers     Capability = "canRegisterUsers"
	CanViewAllData       Capability = "canViewAllData"
)

// Capabilities lists every capability in registration order. Bit positions in a default
// [Registry] follow this order.
func Capabilities() []Capability {
	return []Capability{
		CanViewDashboard,
		CanManageEmployees,
		CanManageDepartments,
		CanManageLeave,
		CanViewReports,
		CanManageSettings,
		CanRegisterUsers,
		CanViewAllData,
	}
}
