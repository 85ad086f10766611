package middleware

import (
	"net/http"

	hrmAuth "github.com/MrEthical07/hrmAuth"
	"github.com/MrEthical07/hrmAuth/permission"
)

// RequireCapability is [RequireSession] plus an explicit capability checked before the
// route map.
func RequireCapability(c *hrmAuth.Client, capability permission.Capability) func(http.Handler) http.Handler {
	opts := OptionsFor(c)
	opts.Required = capability
	return Guard(c, opts)
}
