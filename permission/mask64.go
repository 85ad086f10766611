package permission

// Mask64 holds up to 64 capability bits for one role.
type Mask64 uint64

// Has reports whether bit is set. Out-of-range bits are never set.
func (m Mask64) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	return (m & (1 << bit)) != 0
}

func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= (1 << bit)
}

func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= (1 << bit)
}

func (m Mask64) Raw() uint64 {
	return uint64(m)
}
