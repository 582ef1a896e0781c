// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"

	"github.com/toeirei/usermgr/internal/app"
	"github.com/toeirei/usermgr/internal/model"
)

// Service is everything the screens need from the runtime.
type Service interface {
	IsLoggedIn() bool
	Login(ctx context.Context, creds model.Credentials) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (model.User, error)
	ListUsers(ctx context.Context, p model.UserListParams) (model.UserList, error)
	CreateUser(ctx context.Context, in model.UserCreate) (model.User, error)
	UpdateUser(ctx context.Context, id int, in model.UserUpdate) (model.User, error)
	DeleteUser(ctx context.Context, id int) (model.User, error)
}

// appService adapts a wired *app.App to Service.
type appService struct {
	a *app.App
}

// NewService returns the Service backed by a.
func NewService(a *app.App) Service { return appService{a: a} }

func (s appService) IsLoggedIn() bool { return s.a.Session.IsLoggedIn() }

func (s appService) Login(ctx context.Context, creds model.Credentials) error {
	return s.a.Session.Login(ctx, creds)
}

func (s appService) Logout(ctx context.Context) error { return s.a.Session.Logout(ctx) }

func (s appService) Me(ctx context.Context) (model.User, error) { return s.a.API.Me(ctx) }

func (s appService) ListUsers(ctx context.Context, p model.UserListParams) (model.UserList, error) {
	return s.a.API.ListUsers(ctx, p)
}

func (s appService) CreateUser(ctx context.Context, in model.UserCreate) (model.User, error) {
	return s.a.API.CreateUser(ctx, in)
}

func (s appService) UpdateUser(ctx context.Context, id int, in model.UserUpdate) (model.User, error) {
	return s.a.API.UpdateUser(ctx, id, in)
}

func (s appService) DeleteUser(ctx context.Context, id int) (model.User, error) {
	return s.a.API.DeleteUser(ctx, id)
}
