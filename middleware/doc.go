// Package middleware exposes the portal's route guard as HTTP middleware over an
// hrmAuth.Client.
//
// # Guards
//
//   - [Guard]: evaluates a [Source] with explicit [GuardOptions].
//   - [RequireSession]: any authenticated session the route map admits.
//   - [RequireCapability]: additionally requires one capability.
//
// Each evaluation checks the session, then the required capability, then the route map.
// An expired session counts as no session: the Source clears it and the guard sends the
// user to login. Denials are 303 redirects: to the login route with from and clear=1, or
// to the unauthorized route.
//
// # Architecture boundaries
//
// This package translates navigation into Client calls. It does NOT decide permissions
// itself; every answer comes from the Source. Decisions are UI gating only, the backend
// still authorizes every call.
//
// # What this package must NOT do
//
//   - Decode tokens directly.
//   - Touch session storage.
//   - Let the background profile refresh influence a decision.
package middleware
