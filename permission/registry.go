package permission

import (
	"errors"
	"sync"
)

const maxCapabilities = 64

// Registry maps capability names to bit positions within a [Mask64].
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[Capability]int
	bitToName map[int]Capability
	frozen    bool
}

// NewRegistry creates an empty, unfrozen [Registry].
func NewRegistry() *Registry {
	return &Registry{
		nameToBit: make(map[Capability]int),
		bitToName: make(map[int]Capability),
	}
}

// Register assigns the next available bit to the named capability.
// Returns the assigned bit index. Must be called before [Registry.Freeze].
func (r *Registry) Register(name Capability) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}

	if name == "" {
		return -1, errors.New("capability name cannot be empty")
	}

	if _, exists := r.nameToBit[name]; exists {
		return -1, errors.New("capability already registered")
	}

	nextBit := len(r.nameToBit)
	if nextBit >= maxCapabilities {
		return -1, errors.New("capability limit exceeded")
	}

	r.nameToBit[name] = nextBit
	r.bitToName[nextBit] = name

	return nextBit, nil
}

// Bit returns the bit index for the named capability, or false if not registered.
func (r *Registry) Bit(name Capability) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the capability for the given bit index, or false if unassigned.
func (r *Registry) Name(bit int) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}
