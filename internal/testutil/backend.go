// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil provides an in-process fake of the user-management REST
// backend for tests. It serves the same routes under /api/v1, answers errors
// with a {"detail": ...} body and mints HS256 bearer tokens.
package testutil // import "github.com/toeirei/usermgr/internal/testutil"

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/toeirei/usermgr/internal/model"
)

// Prefix is the path every route is mounted under.
const Prefix = "/api/v1"

// Recorded is one request seen by the backend.
type Recorded struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	ContentType   string
	RequestID     string
}

type account struct {
	user     model.User
	password string
}

type failure struct {
	status int
	detail string
}

// Backend is a fake user-management server.
type Backend struct {
	Echo   *echo.Echo
	Server *httptest.Server

	// UnauthorizedDetail is sent with 401 responses. Empty means a bare 401.
	UnauthorizedDetail string

	secret []byte

	mu       sync.Mutex
	accounts map[int]*account
	nextID   int
	failures map[string]failure
	requests []Recorded
}

// NewBackend starts a backend that is shut down when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		secret:   []byte("test-secret"),
		accounts: map[int]*account{},
		nextID:   1,
		failures: map[string]failure{},
	}
	b.Echo = b.router()
	b.Server = httptest.NewServer(b.Echo)
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base address, including Prefix.
func (b *Backend) URL() string { return b.Server.URL + Prefix }

// AddUser stores an account and returns it.
func (b *Backend) AddUser(username, email, password string, admin bool) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(username, email, password, true, admin)
}

func (b *Backend) addLocked(username, email, password string, active, admin bool) model.User {
	u := model.User{
		ID:        b.nextID,
		Username:  username,
		Email:     email,
		IsActive:  active,
		IsAdmin:   admin,
		CreatedAt: model.Timestamp{Time: time.Now().UTC().Truncate(time.Second)},
	}
	b.nextID++
	b.accounts[u.ID] = &account{user: u, password: password}
	return u
}

// User returns the stored account with id.
func (b *Backend) User(id int) (model.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return a.user, true
}

// IssueToken mints a token for the user with id, valid for ttl.
func (b *Backend) IssueToken(id int, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": strconv.Itoa(id),
		"exp": time.Now().Add(ttl).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return s
}

// Fail makes method+path (relative to Prefix, e.g. "/users/5") answer with
// status. An empty detail sends no body.
func (b *Backend) Fail(method, path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, detail: detail}
}

// Reset clears failures and recorded requests.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = map[string]failure{}
	b.requests = nil
}

// Requests returns the requests seen so far.
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Recorded(nil), b.requests...)
}

// LastRequest returns the most recent request.
func (b *Backend) LastRequest() (Recorded, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return Recorded{}, false
	}
	return b.requests[len(b.requests)-1], true
}

func (b *Backend) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = b.errorHandler
	e.Use(echomiddleware.Recover())
	e.Use(b.record)
	e.Use(b.injectFailures)

	g := e.Group(Prefix)
	g.POST("/login/access-token", b.login)
	g.POST("/register", b.register)

	authed := g.Group("", b.auth)
	authed.GET("/me", b.me)
	authed.GET("/users", b.listUsers, b.admin)
	authed.POST("/users", b.createUser, b.admin)
	authed.GET("/users/:id", b.getUser)
	authed.PUT("/users/:id", b.updateUser, b.admin)
	authed.DELETE("/users/:id", b.deleteUser, b.admin)
	return e
}

func (b *Backend) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	var detail any = "Internal Server Error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		detail = he.Message
	}
	if status == http.StatusUnauthorized && b.UnauthorizedDetail == "" {
		_ = c.NoContent(status)
		return
	}
	if status == http.StatusUnauthorized {
		detail = b.UnauthorizedDetail
	}
	_ = c.JSON(status, echo.Map{"detail": detail})
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		b.mu.Lock()
		b.requests = append(b.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		b.mu.Lock()
		f, ok := b.failures[r.Method+" "+strings.TrimPrefix(r.URL.Path, Prefix)]
		b.mu.Unlock()
		if !ok {
			return next(c)
		}
		if f.detail == "" {
			return c.NoContent(f.status)
		}
		return c.JSON(f.status, echo.Map{"detail": f.detail})
	}
}

func (b *Backend) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		parts := strings.SplitN(c.Request().Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}
		claims := jwt.MapClaims{}
		tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tkn.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims.GetSubject()
		id, err := strconv.Atoi(sub)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		b.mu.Lock()
		a, ok := b.accounts[id]
		b.mu.Unlock()
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		if !a.user.IsActive {
			return echo.NewHTTPError(http.StatusBadRequest, "用户已被禁用")
		}
		c.Set("user", a.user)
		return next(c)
	}
}

func (b *Backend) admin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !current(c).IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "权限不足")
		}
		return next(c)
	}
}

func current(c echo.Context) model.User {
	u, _ := c.Get("user").(model.User)
	return u
}

func (b *Backend) login(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	b.mu.Lock()
	var found *account
	for _, a := range b.accounts {
		if a.user.Username == username || a.user.Email == username {
			found = a
			break
		}
	}
	b.mu.Unlock()
	if found == nil || found.password != password {
		return echo.NewHTTPError(http.StatusBadRequest, "用户名或密码错误")
	}
	if !found.user.IsActive {
		return echo.NewHTTPError(http.StatusBadRequest, "用户已被禁用")
	}
	return c.JSON(http.StatusOK, model.Token{
		AccessToken: b.IssueToken(found.user.ID, 30*time.Minute),
		TokenType:   "bearer",
	})
}

func (b *Backend) register(c echo.Context) error {
	var in model.Registration
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, []echo.Map{{"msg": "invalid body"}})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkUniqueLocked(in.Username, in.Email, 0); err != nil {
		return err
	}
	admin := len(b.accounts) == 0
	return c.JSON(http.StatusOK, b.addLocked(in.Username, in.Email, in.Password, true, admin))
}

func (b *Backend) checkUniqueLocked(username, email string, except int) error {
	for id, a := range b.accounts {
		if id == except {
			continue
		}
		if email != "" && a.user.Email == email {
			return echo.NewHTTPError(http.StatusBadRequest, "该邮箱已被注册")
		}
		if username != "" && a.user.Username == username {
			return echo.NewHTTPError(http.StatusBadRequest, "该用户名已被使用")
		}
	}
	return nil
}

func (b *Backend) me(c echo.Context) error {
	return c.JSON(http.StatusOK, current(c))
}

func (b *Backend) listUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 100
	}
	search := strings.ToLower(c.QueryParam("search"))

	b.mu.Lock()
	var all []model.User
	for _, a := range b.accounts {
		if search != "" && !strings.Contains(strings.ToLower(a.user.Username), search) &&
			!strings.Contains(strings.ToLower(a.user.Email), search) {
			continue
		}
		all = append(all, a.user)
	}
	b.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return c.JSON(http.StatusOK, model.UserList{Data: all[start:end], Total: total})
}

func (b *Backend) lookup(c echo.Context) (*account, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, []echo.Map{{"msg": fmt.Sprintf("invalid id %q", c.Param("id"))}})
	}
	a, ok := b.accounts[id]
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "用户不存在")
	}
	return a, nil
}

func (b *Backend) getUser(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.lookup(c)
	if err != nil {
		return err
	}
	if me := current(c); me.ID != a.user.ID && !me.IsAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "没有足够的权限")
	}
	return c.JSON(http.StatusOK, a.user)
}

func (b *Backend) createUser(c echo.Context) error {
	var in model.UserCreate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, []echo.Map{{"msg": "invalid body"}})
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkUniqueLocked(in.Username, in.Email, 0); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b.addLocked(in.Username, in.Email, in.Password, active, false))
}

func (b *Backend) updateUser(c echo.Context) error {
	var in model.UserUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, []echo.Map{{"msg": "invalid body"}})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.lookup(c)
	if err != nil {
		return err
	}
	var username, email string
	if in.Username != nil {
		username = *in.Username
	}
	if in.Email != nil {
		email = *in.Email
	}
	if err := b.checkUniqueLocked(username, email, a.user.ID); err != nil {
		return err
	}
	if in.Username != nil {
		a.user.Username = *in.Username
	}
	if in.Email != nil {
		a.user.Email = *in.Email
	}
	if in.Password != nil {
		a.password = *in.Password
	}
	if in.IsActive != nil {
		a.user.IsActive = *in.IsActive
	}
	now := model.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	a.user.UpdatedAt = &now
	return c.JSON(http.StatusOK, a.user)
}

func (b *Backend) deleteUser(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.lookup(c)
	if err != nil {
		return err
	}
	delete(b.accounts, a.user.ID)
	return c.JSON(http.StatusOK, a.user)
}
