// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package api declares one function per backend endpoint. Each only builds
// the request; sending, auth and error classification belong to the gateway.
package api // import "github.com/toeirei/usermgr/internal/api"

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/model"
)

// Doer is the part of *gateway.Gateway the endpoints need.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// Client binds the endpoint functions to a gateway.
type Client struct {
	gw Doer
}

// New returns a Client sending through gw.
func New(gw Doer) *Client {
	return &Client{gw: gw}
}

// Login exchanges credentials for a token. The token endpoint takes
// form-encoded credentials.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.Token, error) {
	var tok model.Token
	err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "login/access-token",
		Form:   url.Values{"username": {creds.Username}, "password": {creds.Password}},
		Input:  creds,
	}, &tok)
	return tok, err
}

// Register creates an account through self-service sign-up.
func (c *Client) Register(ctx context.Context, r model.Registration) (model.User, error) {
	var u model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "register", Body: r}, &u)
	return u, err
}

// Me returns the user owning the current token.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "me"}, &u)
	return u, err
}

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, p model.UserListParams) (model.UserList, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	var l model.UserList
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "users", Query: q, Input: p}, &l)
	return l, err
}

// GetUser returns one user.
func (c *Client) GetUser(ctx context.Context, id int) (model.User, error) {
	var u model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: userPath(id)}, &u)
	return u, err
}

// CreateUser creates a user (admin only).
func (c *Client) CreateUser(ctx context.Context, in model.UserCreate) (model.User, error) {
	var u model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "users", Body: in}, &u)
	return u, err
}

// UpdateUser applies a partial update (admin only).
func (c *Client) UpdateUser(ctx context.Context, id int, in model.UserUpdate) (model.User, error) {
	var u model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPut, Path: userPath(id), Body: in}, &u)
	return u, err
}

// DeleteUser removes a user and returns the deleted record (admin only).
func (c *Client) DeleteUser(ctx context.Context, id int) (model.User, error) {
	var u model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: userPath(id)}, &u)
	return u, err
}

func userPath(id int) string {
	return "users/" + strconv.Itoa(id)
}
