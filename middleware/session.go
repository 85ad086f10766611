package middleware

import (
	"net/http"

	hrmAuth "github.com/MrEthical07/hrmAuth"
)

// RequireSession guards with c's configured routes and no capability beyond the route map.
func RequireSession(c *hrmAuth.Client) func(http.Handler) http.Handler {
	return Guard(c, OptionsFor(c))
}
