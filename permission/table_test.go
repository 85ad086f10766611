package permission

import "testing"

func TestDefaultTableDeniesEverythingNotGranted(t *testing.T) {
	table := DefaultTable()
	for role, granted := range DefaultGrants() {
		set := make(map[Capability]struct{}, len(granted))
		for _, c := range granted {
			set[c] = struct{}{}
		}
		for _, c := range Capabilities() {
			_, want := set[c]
			if got := table.Has(role, c); got != want {
				t.Fatalf("role %s capability %s: expected %v, got %v", role, c, want, got)
			}
		}
	}
}

func TestTableUnknownRoleOrCapabilityDenied(t *testing.T) {
	table := DefaultTable()
	if table.Has("Intern", CanViewDashboard) {
		t.Fatal("unknown role must be denied")
	}
	if table.Has("", CanViewDashboard) {
		t.Fatal("empty role must be denied")
	}
	if table.Has(RoleCEO, "canLaunchRockets") {
		t.Fatal("unknown capability must be denied")
	}
	var nilTable *Table
	if nilTable.Has(RoleCEO, CanViewDashboard) {
		t.Fatal("nil table must deny")
	}
}

func TestTableHRAndEmployeeScenario(t *testing.T) {
	table := DefaultTable()
	if !table.Has(RoleHR, CanManageDepartments) {
		t.Fatal("HR must manage departments")
	}
	if !table.Has(RoleHR, CanManageSettings) {
		t.Fatal("HR must manage settings")
	}
	if table.Has(RoleEmployee, CanManageDepartments) || table.Has(RoleEmployee, CanManageSettings) {
		t.Fatal("Employee must not manage departments or settings")
	}
}

func TestGrantedFollowsRegistrationOrder(t *testing.T) {
	got := DefaultTable().Granted(RoleManager)
	want := []Capability{CanViewDashboard, CanManageLeave, CanViewReports}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNewTableRejectsUnknownRoleAndCapability(t *testing.T) {
	if _, err := NewTable(map[Role][]Capability{"Intern": {CanViewDashboard}}); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
	if _, err := NewTable(map[Role][]Capability{RoleHR: {"canFly"}}); err == nil {
		t.Fatal("expected unknown capability to be rejected")
	}
}

func TestTableIsFrozen(t *testing.T) {
	table := MustTable(map[Role][]Capability{RoleEmployee: {CanViewDashboard}})
	if _, err := table.registry.Register("canSomethingElse"); err == nil {
		t.Fatal("expected frozen registry to reject registration")
	}
	if err := table.roles.RegisterRole(RoleCEO, nil); err == nil {
		t.Fatal("expected frozen role manager to reject registration")
	}
}

func TestRegistryLimit(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < maxCapabilities; i++ {
		if _, err := r.Register(Capability(string(rune('A'+i%26)) + string(rune('a'+i/26)))); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow"); err == nil {
		t.Fatal("expected capability limit error")
	}
}

func TestMask64OutOfRange(t *testing.T) {
	var m Mask64
	m.Set(64)
	m.Set(-1)
	if m.Raw() != 0 {
		t.Fatalf("expected out-of-range sets to be ignored, got %d", m.Raw())
	}
	m.Set(3)
	if !m.Has(3) || m.Has(4) || m.Has(99) {
		t.Fatalf("unexpected mask state %b", m.Raw())
	}
	m.Clear(3)
	if m.Has(3) {
		t.Fatal("expected bit cleared")
	}
}
