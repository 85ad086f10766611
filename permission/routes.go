package permission

import (
	"path"
	"strings"
)

// RouteMap maps route paths to the capability they require. Paths without an entry are
// open to any authenticated session.
type RouteMap struct {
	routes map[string]Capability
}

// DefaultRoutes is the HRM portal's route-permission map.
func DefaultRoutes() map[string]Capability {
	return map[string]Capability{
		"/dashboard":       CanViewDashboard,
		"/employees":       CanManageEmployees,
		"/departments":     CanManageDepartments,
		"/leave/approvals": CanManageLeave,
		"/reports":         CanViewReports,
		"/settings":        CanManageSettings,
		"/register":        CanRegisterUsers,
	}
}

// NewRouteMap copies routes, normalizing each key.
func NewRouteMap(routes map[string]Capability) *RouteMap {
	m := &RouteMap{routes: make(map[string]Capability, len(routes))}
	for p, c := range routes {
		m.routes[normalizeRoute(p)] = c
	}
	return m
}

var defaultRouteMap = NewRouteMap(DefaultRoutes())

// DefaultRouteMap returns the shared map built from [DefaultRoutes].
func DefaultRouteMap() *RouteMap {
	return defaultRouteMap
}

// Required returns the capability guarding routePath. Matching is by whole path
// segments and the longest registered prefix wins, so /employees/42/edit inherits
// /employees.
func (m *RouteMap) Required(routePath string) (Capability, bool) {
	if m == nil || len(m.routes) == 0 {
		return "", false
	}
	p := normalizeRoute(routePath)
	for {
		if c, ok := m.routes[p]; ok {
			return c, true
		}
		if p == "/" {
			return "", false
		}
		idx := strings.LastIndexByte(p, '/')
		if idx <= 0 {
			p = "/"
		} else {
			p = p[:idx]
		}
	}
}

// Len returns the number of routes with a requirement.
func (m *RouteMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.routes)
}

func normalizeRoute(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
