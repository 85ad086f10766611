package flows

// Deps groups flow dependency sets. The root Client builds this once and delegates each
// operation to the matching flow.
type Deps struct {
	Login      LoginDeps
	Refresh    RefreshDeps
	Initialize InitializeDeps
	Request    RequestDeps
	Logout     LogoutDeps
}
