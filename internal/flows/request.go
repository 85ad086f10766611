package flows

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestSpec is one fully resolved pipeline call. Body is kept as bytes so a retry can
// resend it unchanged.
type RequestSpec struct {
	Method       string
	URL          string
	Body         []byte
	Header       http.Header
	AuthEndpoint bool
	MaxBodyBytes int64
}

// Exchange is one request/response round trip.
type Exchange struct {
	Status int
	Header http.Header
	Body   []byte
}

// EndReason says why RunRequest ended the session.
type EndReason int

const (
	EndNone EndReason = iota
	EndRefreshFailed
	EndRetryUnauthorized
)

func (r EndReason) String() string {
	switch r {
	case EndRefreshFailed:
		return "refresh_failed"
	case EndRetryUnauthorized:
		return "retry_unauthorized"
	default:
		return "none"
	}
}

// RequestResult is the outcome of RunRequest. When SessionEnded is set the caller must
// log out and redirect; Exchange is then meaningless. EndedToken is the access token of
// the session that ended.
type RequestResult struct {
	Exchange     Exchange
	Retried      bool
	SessionEnded bool
	EndReason    EndReason
	EndedToken   string
	Err          error
}

// RequestDeps captures request pipeline dependencies.
type RequestDeps struct {
	HTTP Doer
	// AccessToken returns the current access token, or "" when there is no session.
	AccessToken func() string
	// Refresh obtains a new access token. stale is the token phase one was rejected with;
	// it is only called from phase two.
	Refresh func(ctx context.Context, stale string) (string, error)
}

var errResponseTooLarge = errors.New("response body exceeds limit")

// RunRequest is the two-phase pipeline: issue once, and on a refreshable 401 refresh and
// reissue exactly once. There is no loop; a second 401 ends the session.
func RunRequest(ctx context.Context, spec RequestSpec, deps RequestDeps) RequestResult {
	token := deps.AccessToken()

	// Phase 1.
	first, err := Send(ctx, deps.HTTP, spec, token)
	if err != nil {
		return RequestResult{Err: err}
	}
	if !refreshable(first, spec, token) {
		return RequestResult{Exchange: first}
	}

	// Phase 2.
	fresh, err := deps.Refresh(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return RequestResult{Err: ctx.Err()}
		}
		return RequestResult{SessionEnded: true, EndReason: EndRefreshFailed, EndedToken: token, Err: err}
	}

	second, err := Send(ctx, deps.HTTP, spec, fresh)
	if err != nil {
		return RequestResult{Retried: true, Err: err}
	}
	if second.Status == http.StatusUnauthorized {
		return RequestResult{Retried: true, SessionEnded: true, EndReason: EndRetryUnauthorized, EndedToken: fresh}
	}
	return RequestResult{Exchange: second, Retried: true}
}

// refreshable: a 401, outside the auth endpoints, for a call that carried a session.
func refreshable(ex Exchange, spec RequestSpec, token string) bool {
	return ex.Status == http.StatusUnauthorized && !spec.AuthEndpoint && token != ""
}

// Send performs a single round trip. token, when non-empty, replaces any Authorization
// header in spec.
func Send(ctx context.Context, doer Doer, spec RequestSpec, token string) (Exchange, error) {
	var body io.Reader
	if spec.Body != nil {
		body = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return Exchange{}, err
	}
	for k, vs := range spec.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return Exchange{}, err
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if spec.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, spec.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return Exchange{}, fmt.Errorf("read response: %w", err)
	}
	if spec.MaxBodyBytes > 0 && int64(len(data)) > spec.MaxBodyBytes {
		return Exchange{}, errResponseTooLarge
	}

	return Exchange{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
