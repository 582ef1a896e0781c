// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package gateway is the single HTTP client every API call goes through.
//
// Each call runs the same pipeline: validate the typed input, build the
// request, attach the session's bearer token (read at send time, never
// cached), send with a fixed timeout, classify the response with the pure
// Classify function and finally apply side effects: notify the user of the
// classified message and, on session expiry, clear the session and navigate
// to the login screen. Callers only ever see the decoded payload or a *Error.
package gateway // import "github.com/toeirei/usermgr/internal/gateway"

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/toeirei/usermgr/internal/i18n"
	"github.com/toeirei/usermgr/internal/logging"
)

// DefaultTimeout is used when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// LoginRoute is where the UI is sent when the session expires.
const LoginRoute = "/login"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Session is the gateway's view of the session store.
type Session interface {
	// Token returns the current bearer token, or "" when logged out.
	Token() string
	// Expire clears the session and reports whether a token was held.
	Expire(ctx context.Context) bool
}

// Notifier delivers user-facing messages. Delivery is fire-and-forget.
type Notifier interface {
	Notify(msg string)
}

// Navigator switches the UI to a route.
type Navigator interface {
	Navigate(route string)
}

// Validator is implemented by request inputs that can be checked before
// they are sent.
type Validator interface {
	Validate() error
}

// Config is fixed at construction.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Request describes one call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is sent as JSON. Ignored when Form is set.
	Body any
	// Form is sent as application/x-www-form-urlencoded.
	Form url.Values
	// Input is the typed value Query or Form were built from; it is
	// validated like Body.
	Input any
}

// Gateway is safe for concurrent use.
type Gateway struct {
	base      *url.URL
	timeout   time.Duration
	client    *http.Client
	session   Session
	notifier  Notifier
	navigator Navigator
	metrics   *metrics
	requestID func() string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the underlying client (transport, TLS, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithNotifier sets where classified failure messages are delivered.
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) { g.notifier = n }
}

// WithNavigator sets the navigation hook used on session expiry.
func WithNavigator(n Navigator) Option {
	return func(g *Gateway) { g.navigator = n }
}

// WithRequestIDFunc overrides the X-Request-ID generator.
func WithRequestIDFunc(f func() string) Option {
	return func(g *Gateway) { g.requestID = f }
}

// New validates cfg and returns a Gateway bound to sess.
func New(cfg Config, sess Session, opts ...Option) (*Gateway, error) {
	if sess == nil {
		return nil, errors.New("gateway: nil session")
	}
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("gateway: base url %q must be an absolute http(s) url", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &Gateway{
		base:      base,
		timeout:   timeout,
		client:    &http.Client{},
		session:   sess,
		notifier:  nopNotifier{},
		navigator: nopNavigator{},
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// BaseURL returns the configured base address.
func (g *Gateway) BaseURL() string { return g.base.String() }

// Do runs one call. On success the response payload is decoded into out
// (when out is non-nil); on failure the returned error is a *Error.
func (g *Gateway) Do(ctx context.Context, req Request, out any) error {
	requestID := g.requestID()
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	for _, in := range []any{req.Body, req.Input} {
		v, ok := in.(Validator)
		if !ok {
			continue
		}
		if err := v.Validate(); err != nil {
			g.observe(method, KindValidation, 0)
			return g.fail(ctx, Outcome{Kind: KindValidation, Message: i18n.T("gateway.validation", err.Error())}, requestID, method, req.Path, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := g.build(callCtx, method, req)
	if err != nil {
		g.observe(method, KindFailed, 0)
		return g.fail(ctx, Outcome{Kind: KindFailed, Message: i18n.T("gateway.send_failed")}, requestID, method, req.Path, err)
	}
	g.intercept(httpReq, requestID)

	start := time.Now()
	resp := g.send(httpReq)
	elapsed := time.Since(start)
	outcome := Classify(resp)
	g.observe(method, outcome.Kind, elapsed)
	logging.Debugf("gateway: %s %s -> %d (%s) in %s [%s]", method, httpReq.URL.Path, resp.StatusCode, outcome.Kind, elapsed, requestID)

	if !outcome.OK() {
		return g.fail(ctx, outcome, requestID, method, req.Path, resp.Err)
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return g.fail(ctx, Outcome{Kind: KindFailed, Status: resp.StatusCode, Message: i18n.T("gateway.failed")}, requestID, method, req.Path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Get is Do with GET and optional query parameters.
func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	return g.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post is Do with POST and a JSON body.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put is Do with PUT and a JSON body.
func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete is Do with DELETE.
func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

func (g *Gateway) build(ctx context.Context, method string, req Request) (*http.Request, error) {
	u := g.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// intercept attaches per-request headers.
func (g *Gateway) intercept(req *http.Request, requestID string) {
	req.Header.Set("X-Request-ID", requestID)
	if token := g.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (g *Gateway) send(req *http.Request) Response {
	resp, err := g.client.Do(req)
	if err != nil {
		return Response{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{Err: fmt.Errorf("read response: %w", err)}
	}
	return Response{StatusCode: resp.StatusCode, Body: body}
}

// fail applies the outcome's side effects and builds the returned error.
// The session is cleared and the navigator called before the error is
// returned, so callers observe the logged-out state.
func (g *Gateway) fail(ctx context.Context, o Outcome, requestID, method, path string, cause error) error {
	if o.ExpireSession {
		if g.session.Expire(ctx) {
			logging.Infof("gateway: session expired on %s %s; cleared", method, path)
		}
		g.navigate(LoginRoute)
	}
	g.notify(o.Message)
	if cause != nil {
		logging.Warnf("gateway: %s %s failed (%s): %s: %v [%s]", method, path, o.Kind, o.Message, cause, requestID)
	} else {
		logging.Warnf("gateway: %s %s failed (%s, status %d): %s [%s]", method, path, o.Kind, o.Status, o.Message, requestID)
	}
	return &Error{
		Kind:      o.Kind,
		Status:    o.Status,
		Message:   o.Message,
		Detail:    o.Detail,
		RequestID: requestID,
		Err:       cause,
	}
}

func (g *Gateway) notify(msg string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warnf("gateway: notifier panicked: %v", r)
		}
	}()
	g.notifier.Notify(msg)
}

func (g *Gateway) navigate(route string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warnf("gateway: navigator panicked: %v", r)
		}
	}()
	g.navigator.Navigate(route)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}
