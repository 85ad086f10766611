package session

// User is the identity derived from access-token claims.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Snapshot is the persisted session state.
type Snapshot struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Empty reports whether s carries no session at all.
func (s *Snapshot) Empty() bool {
	return s == nil || (s.User == nil && s.AccessToken == "" && s.RefreshToken == "")
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return &out
}
