package flows

import "context"

// Service is the centralized flow runner built once by the root Client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Request.HTTP != nil && s.deps.Login.Post != nil
}

func (s Service) Login(ctx context.Context, username, password string) LoginResult {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Initialize(ctx context.Context) InitializeResult {
	return RunInitialize(ctx, s.deps.Initialize)
}

func (s Service) Request(ctx context.Context, spec RequestSpec) RequestResult {
	return RunRequest(ctx, spec, s.deps.Request)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps.Logout)
}
