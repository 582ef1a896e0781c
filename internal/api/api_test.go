package api_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/usermgr/internal/api"
	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/model"
	"github.com/toeirei/usermgr/internal/session"
	"github.com/toeirei/usermgr/internal/storage"
	"github.com/toeirei/usermgr/internal/testutil"
)

type harness struct {
	backend *testutil.Backend
	sess    *session.Store
	client  *api.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := testutil.NewBackend(t)
	sess, err := session.New(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	gw, err := gateway.New(gateway.Config{BaseURL: b.URL(), Timeout: 2 * time.Second}, sess)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	c := api.New(gw)
	sess.UseAuthenticator(c)
	return &harness{backend: b, sess: sess, client: c}
}

func (h *harness) loginAdmin(t *testing.T) model.User {
	t.Helper()
	admin := h.backend.AddUser("admin", "admin@example.com", "secret", true)
	if err := h.sess.Login(context.Background(), model.Credentials{Username: "admin", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	return admin
}

func TestLoginSendsForm(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("alice", "alice@example.com", "pw", false)

	tok, err := h.client.Login(context.Background(), model.Credentials{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token %+v", tok)
	}
	rec, _ := h.backend.LastRequest()
	if rec.Path != "/api/v1/login/access-token" {
		t.Fatalf("path = %q", rec.Path)
	}
	if !strings.HasPrefix(rec.ContentType, "application/x-www-form-urlencoded") {
		t.Fatalf("content type = %q", rec.ContentType)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("alice", "alice@example.com", "pw", false)

	_, err := h.client.Login(context.Background(), model.Credentials{Username: "alice", Password: "nope"})
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *gateway.Error, got %v", err)
	}
	if gerr.Status != http.StatusBadRequest || gerr.Message != "用户名或密码错误" {
		t.Fatalf("unexpected error %+v", gerr)
	}
}

func TestLoginEmptyCredentialsNotSent(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Login(context.Background(), model.Credentials{Username: "alice"})
	if !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(h.backend.Requests()); n != 0 {
		t.Fatalf("expected no request, got %d", n)
	}
}

func TestRegisterAndMe(t *testing.T) {
	h := newHarness(t)
	u, err := h.client.Register(context.Background(), model.Registration{Username: "bob", Email: "bob@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == 0 || u.Username != "bob" || !u.IsActive {
		t.Fatalf("unexpected user %+v", u)
	}
	if err := h.sess.Login(context.Background(), model.Credentials{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	me, err := h.client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ID != u.ID {
		t.Fatalf("Me returned %+v, want id %d", me, u.ID)
	}
	rec, _ := h.backend.LastRequest()
	if rec.Authorization != "Bearer "+h.sess.Token() {
		t.Fatalf("authorization = %q", rec.Authorization)
	}
}

func TestRegisterInvalidEmail(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Register(context.Background(), model.Registration{Username: "bob", Email: "not-an-email", Password: "pw"})
	if !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("bob", "bob@example.com", "pw", false)
	_, err := h.client.Register(context.Background(), model.Registration{Username: "bobby", Email: "bob@example.com", Password: "pw"})
	var gerr *gateway.Error
	if !errors.As(err, &gerr) || gerr.Message != "该邮箱已被注册" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestListUsersQuery(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	for _, name := range []string{"carol", "dave", "erin"} {
		h.backend.AddUser(name, name+"@example.com", "pw", false)
	}

	list, err := h.client.ListUsers(context.Background(), model.UserListParams{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if list.Total != 4 || len(list.Data) != 2 || list.Data[0].Username != "dave" {
		t.Fatalf("unexpected page %+v", list)
	}
	rec, _ := h.backend.LastRequest()
	if rec.Path != "/api/v1/users" || rec.Query.Get("page") != "2" || rec.Query.Get("limit") != "2" {
		t.Fatalf("unexpected request %+v", rec)
	}
	if rec.Query.Has("search") {
		t.Fatalf("empty search should be omitted: %v", rec.Query)
	}

	list, err = h.client.ListUsers(context.Background(), model.UserListParams{Search: "ERI"})
	if err != nil {
		t.Fatalf("ListUsers search: %v", err)
	}
	if list.Total != 1 || list.Data[0].Username != "erin" {
		t.Fatalf("unexpected search result %+v", list)
	}
}

func TestListUsersForbiddenForNonAdmin(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("frank", "frank@example.com", "pw", false)
	if err := h.sess.Login(context.Background(), model.Credentials{Username: "frank", Password: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, err := h.client.ListUsers(context.Background(), model.UserListParams{})
	if !errors.Is(err, gateway.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if !h.sess.IsLoggedIn() {
		t.Fatal("403 must not end the session")
	}
}

func TestUserCRUD(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	ctx := context.Background()

	inactive := false
	created, err := h.client.CreateUser(ctx, model.UserCreate{Username: "gina", Email: "gina@example.com", Password: "pw", IsActive: &inactive})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.IsActive {
		t.Fatalf("expected inactive user, got %+v", created)
	}

	got, err := h.client.GetUser(ctx, created.ID)
	if err != nil || got.Email != "gina@example.com" {
		t.Fatalf("GetUser: %+v, %v", got, err)
	}

	email := "g@example.com"
	active := true
	updated, err := h.client.UpdateUser(ctx, created.ID, model.UserUpdate{Email: &email, IsActive: &active})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Email != email || !updated.IsActive || updated.UpdatedAt == nil {
		t.Fatalf("unexpected update result %+v", updated)
	}
	rec, _ := h.backend.LastRequest()
	if rec.Method != http.MethodPut || rec.Path != "/api/v1/users/2" {
		t.Fatalf("unexpected update request %+v", rec)
	}

	deleted, err := h.client.DeleteUser(ctx, created.ID)
	if err != nil || deleted.ID != created.ID {
		t.Fatalf("DeleteUser: %+v, %v", deleted, err)
	}
	if _, ok := h.backend.User(created.ID); ok {
		t.Fatal("user still present after delete")
	}

	_, err = h.client.GetUser(ctx, created.ID)
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetUserNotFoundWithoutDetail(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	h.backend.Fail(http.MethodGet, "/users/999", http.StatusNotFound, "")

	_, err := h.client.GetUser(context.Background(), 999)
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *gateway.Error, got %v", err)
	}
	if gerr.Kind != gateway.KindNotFound || gerr.Detail != "" || gerr.Message == "" {
		t.Fatalf("unexpected error %+v", gerr)
	}
	if !h.sess.IsLoggedIn() {
		t.Fatal("404 must not end the session")
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	h.backend.Fail(http.MethodGet, "/users", http.StatusUnauthorized, "")

	_, err := h.client.ListUsers(context.Background(), model.UserListParams{})
	if !errors.Is(err, gateway.ErrSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
	if h.sess.IsLoggedIn() {
		t.Fatal("session should be cleared after 401")
	}
}

func TestUpdateUserValidation(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	bad := "nope"
	_, err := h.client.UpdateUser(context.Background(), 1, model.UserUpdate{Email: &bad})
	if !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
