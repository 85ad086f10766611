package flows

import "context"

type LogoutStore interface {
	Clear(ctx context.Context) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store LogoutStore
}

// RunLogout clears persisted session state. The clear runs detached from ctx's
// cancellation so a caller that has already given up still leaves storage empty.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.Store == nil {
		return nil
	}
	return deps.Store.Clear(context.WithoutCancel(ctx))
}
