package permission

import "fmt"

// Table answers "can role R do capability C". It is built once from a role grant map and
// frozen; there is no runtime mutation.
type Table struct {
	registry *Registry
	roles    *RoleMasks
}

// DefaultGrants is the HRM portal's role grant map.
func DefaultGrants() map[Role][]Capability {
	return map[Role][]Capability{
		RoleCEO: Capabilities(),
		RoleHR: {
			CanViewDashboard,
			CanManageEmployees,
			CanManageDepartments,
			CanManageLeave,
			CanViewReports,
			CanManageSettings,
			CanRegisterUsers,
		},
		RoleManager: {
			CanViewDashboard,
			CanManageLeave,
			CanViewReports,
		},
		RoleEmployee: {
			CanViewDashboard,
		},
	}
}

var defaultTable = MustTable(DefaultGrants())

// DefaultTable returns the shared, frozen table built from [DefaultGrants].
func DefaultTable() *Table {
	return defaultTable
}

// NewTable registers every known capability, then one mask per role in grants, and
// freezes both layers.
func NewTable(grants map[Role][]Capability) (*Table, error) {
	registry := NewRegistry()
	for _, c := range Capabilities() {
		if _, err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register capability %s: %w", c, err)
		}
	}
	registry.Freeze()

	roles := NewRoleMasks(registry)
	for role, caps := range grants {
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q", role)
		}
		if err := roles.RegisterRole(role, caps); err != nil {
			return nil, fmt.Errorf("register role %s: %w", role, err)
		}
	}
	roles.Freeze()

	return &Table{registry: registry, roles: roles}, nil
}

// MustTable is NewTable for package-level tables; it panics on an invalid grant map.
func MustTable(grants map[Role][]Capability) *Table {
	t, err := NewTable(grants)
	if err != nil {
		panic(err)
	}
	return t
}

// Has reports whether role holds c. Unknown roles and unknown capabilities are denied.
func (t *Table) Has(role Role, c Capability) bool {
	if t == nil {
		return false
	}
	bit, ok := t.registry.Bit(c)
	if !ok {
		return false
	}
	mask, ok := t.roles.GetMask(role)
	if !ok {
		return false
	}
	return mask.Has(bit)
}

// Granted lists the capabilities role holds, in registration order.
func (t *Table) Granted(role Role) []Capability {
	if t == nil {
		return nil
	}
	mask, ok := t.roles.GetMask(role)
	if !ok {
		return nil
	}
	out := make([]Capability, 0, t.registry.Count())
	for bit := 0; bit < t.registry.Count(); bit++ {
		if !mask.Has(bit) {
			continue
		}
		if name, ok := t.registry.Name(bit); ok {
			out = append(out, name)
		}
	}
	return out
}
