package permission

import (
	"errors"
	"sync"
)

// RoleMasks composes capability masks per role from a [Registry].
type RoleMasks struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[Role]Mask64
	frozen bool
}

// NewRoleMasks returns an empty set resolving capability names through registry.
func NewRoleMasks(registry *Registry) *RoleMasks {
	return &RoleMasks{
		registry: registry,
		roles:    make(map[Role]Mask64),
	}
}

// RegisterRole stores the mask granting caps to role. Every capability must already be
// registered; a role may only be registered once.
func (rm *RoleMasks) RegisterRole(role Role, caps []Capability) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role masks frozen")
	}

	if role == "" {
		return errors.New("role name empty")
	}

	if _, exists := rm.roles[role]; exists {
		return errors.New("role already registered")
	}

	var mask Mask64
	for _, c := range caps {
		bit, ok := rm.registry.Bit(c)
		if !ok {
			return errors.New("capability not registered: " + string(c))
		}
		mask.Set(bit)
	}

	rm.roles[role] = mask
	return nil
}

// GetMask returns the mask registered for role.
func (rm *RoleMasks) GetMask(role Role) (Mask64, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[role]
	return mask, ok
}

/*
====================================
FREEZE
====================================
*/

// Freeze prevents further role registrations.
func (rm *RoleMasks) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleMasks) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
