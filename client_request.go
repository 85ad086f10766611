package hrmAuth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	internalflows "github.com/MrEthical07/hrmAuth/internal/flows"
	"github.com/MrEthical07/hrmAuth/session"
)

var nullBody = json.RawMessage("null")

// Do sends one call through the request pipeline and returns the raw JSON body of a 2xx
// response (null for an empty body).
//
// A 401 on a non-auth endpoint while a session exists triggers one refresh and one retry
// with the new token. If the refresh fails or the retry is also rejected, the session is
// logged out, the Navigator is sent to the login route, and ErrSessionEnded is returned.
// If a login replaced the session while the call was in flight, the new session is kept
// and the call fails with a 401 *APIError instead. Every other failure is an *APIError.
func (c *Client) Do(ctx context.Context, endpoint string, opts Options) (json.RawMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	spec, err := c.buildSpec(ctx, endpoint, opts)
	if err != nil {
		c.metricInc(MetricAPIError)
		return nil, &APIError{URL: spec.URL, Body: map[string]any{}, Err: err}
	}

	start := c.now()
	res := c.flows.Request(ctx, spec)
	c.metrics.Observe(MetricRequestLatency, c.now().Sub(start))

	if res.Retried {
		c.metricInc(MetricRequestRetried)
	}
	if res.SessionEnded {
		if !c.endSession(ctx, res.EndedToken, res.EndReason, res.Err) {
			// A login replaced the session this call was made with; leave it alone.
			c.metricInc(MetricAPIError)
			return nil, &APIError{Status: http.StatusUnauthorized, Body: map[string]any{}, URL: spec.URL, Err: res.Err}
		}
		return nil, ErrSessionEnded
	}
	if res.Err != nil {
		c.metricInc(MetricAPIError)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(res.Err, ctxErr) {
			return nil, ctxErr
		}
		return nil, &APIError{URL: spec.URL, Body: map[string]any{}, Err: res.Err}
	}

	ex := res.Exchange
	if ex.Status < 200 || ex.Status > 299 {
		c.metricInc(MetricAPIError)
		return nil, &APIError{
			Status: ex.Status,
			Body:   internalflows.ParseObject(ex.Body),
			URL:    spec.URL,
		}
	}

	trimmed := bytes.TrimSpace(ex.Body)
	if len(trimmed) == 0 {
		return nullBody, nil
	}
	if !json.Valid(trimmed) {
		c.metricInc(MetricAPIError)
		return nil, &APIError{Status: ex.Status, Body: map[string]any{}, URL: spec.URL, Err: ErrInvalidResponse}
	}
	return json.RawMessage(trimmed), nil
}

// DoJSON is Do followed by decoding the body into out. A null body leaves out untouched.
func (c *Client) DoJSON(ctx context.Context, endpoint string, opts Options, out any) error {
	raw, err := c.Do(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	if out == nil || bytes.Equal(raw, nullBody) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: http.StatusOK, Body: map[string]any{}, URL: c.ResolveURL(endpoint), Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return c.Do(ctx, endpoint, Options{Method: http.MethodGet})
}

func (c *Client) Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Do(ctx, endpoint, Options{Method: http.MethodPost, Body: body})
}

func (c *Client) Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Do(ctx, endpoint, Options{Method: http.MethodPut, Body: body})
}

func (c *Client) Patch(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Do(ctx, endpoint, Options{Method: http.MethodPatch, Body: body})
}

func (c *Client) Delete(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return c.Do(ctx, endpoint, Options{Method: http.MethodDelete})
}

// ResolveURL joins endpoint onto the base URL with exactly one slash at the seam.
func (c *Client) ResolveURL(endpoint string) string {
	return JoinURL(c.baseURL, endpoint)
}

// JoinURL joins base and endpoint so that a trailing slash on base and a leading slash
// on endpoint never produce a double slash.
func JoinURL(base, endpoint string) string {
	base = strings.TrimRight(base, "/")
	endpoint = strings.TrimLeft(endpoint, "/")
	if endpoint == "" {
		return base
	}
	return base + "/" + endpoint
}

func (c *Client) buildSpec(ctx context.Context, endpoint string, opts Options) (internalflows.RequestSpec, error) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}

	spec := internalflows.RequestSpec{
		Method:       method,
		URL:          c.ResolveURL(endpoint),
		Header:       make(http.Header),
		AuthEndpoint: c.isAuthEndpoint(endpoint),
		MaxBodyBytes: c.config.API.MaxResponseBytes,
	}
	for k, vs := range opts.Headers {
		spec.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if spec.Header.Get("Accept") == "" {
		spec.Header.Set("Accept", "application/json")
	}
	spec.Header.Set("X-Request-ID", requestID(ctx))

	if opts.Body == nil {
		return spec, nil
	}
	if opts.Raw {
		body, err := rawBody(opts.Body)
		if err != nil {
			return spec, err
		}
		spec.Body = body
		return spec, nil
	}

	body, err := json.Marshal(opts.Body)
	if err != nil {
		return spec, fmt.Errorf("encode request body: %w", err)
	}
	spec.Body = body
	if spec.Header.Get("Content-Type") == "" {
		spec.Header.Set("Content-Type", "application/json")
	}
	return spec, nil
}

// rawBody buffers a raw body so a retry can resend the same bytes.
func rawBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("read raw body: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("raw body must be []byte, string, or io.Reader, got %T", body)
	}
}

func requestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

func (c *Client) isAuthEndpoint(endpoint string) bool {
	p := normalizeEndpoint(endpoint)
	return p == normalizeEndpoint(c.config.API.LoginPath) || p == normalizeEndpoint(c.config.API.RefreshPath)
}

func normalizeEndpoint(endpoint string) string {
	if i := strings.IndexAny(endpoint, "?#"); i >= 0 {
		endpoint = endpoint[:i]
	}
	return path.Clean("/" + strings.Trim(strings.TrimSpace(endpoint), "/"))
}

// postAuth is the single-attempt JSON POST used by login and refresh. It never carries a
// bearer token and never triggers a refresh.
func (c *Client) postAuth(ctx context.Context, endpoint string, payload any) (internalflows.Exchange, error) {
	spec, err := c.buildSpec(ctx, endpoint, Options{Method: http.MethodPost, Body: payload})
	if err != nil {
		return internalflows.Exchange{}, err
	}
	spec.AuthEndpoint = true
	return internalflows.Send(ctx, c.http, spec, "")
}

// endSession is the pipeline's hard stop for the session holding token. It reports false,
// without logging out or redirecting, when another session has replaced that one.
func (c *Client) endSession(ctx context.Context, token string, reason internalflows.EndReason, cause error) bool {
	var user *session.User
	cleared, _ := c.logoutIf(ctx, func(s *session.Snapshot) bool {
		if s.AccessToken != token && !s.Empty() {
			return false
		}
		user = s.User
		return true
	})
	if !cleared {
		return false
	}
	c.metricInc(MetricForcedLogout)
	c.emitAudit(ctx, auditEventForcedLogout, false, user, cause, map[string]string{
		"reason": reason.String(),
	})
	c.navigator.Redirect(ctx, c.config.Routes.Login)
	return true
}
