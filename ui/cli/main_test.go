package cli

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/testutil"
)

// setupEnv points configuration at a fake backend and a temp session file.
func setupEnv(t *testing.T) *testutil.Backend {
	t.Helper()
	b := testutil.NewBackend(t)
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	t.Setenv("USERMGR_API_BASE_URL", b.URL())
	t.Setenv("USERMGR_STORAGE_TYPE", "file")
	t.Setenv("USERMGR_STORAGE_DSN", filepath.Join(tmp, "session.yaml"))
	t.Setenv("USERMGR_LANGUAGE", "en")
	return b
}

// executeCommand runs a fresh command tree and captures stdout and stderr.
func executeCommand(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if stdin != nil {
		cmd.SetIn(stdin)
	} else {
		cmd.SetIn(strings.NewReader(""))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := executeCommand(t, nil, args...)
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, errOut)
	}
	return out
}

func TestLoginStatusTokenLogout(t *testing.T) {
	b := setupEnv(t)
	b.AddUser("alice", "alice@example.com", "secret", true)

	if out := mustRun(t, "login", "-u", "alice", "-p", "secret"); !strings.Contains(out, "Logged in as alice") {
		t.Fatalf("login output: %q", out)
	}
	out := mustRun(t, "status")
	if !strings.Contains(out, "Logged in") || !strings.Contains(out, "Subject: 1") {
		t.Fatalf("status output: %q", out)
	}
	tok := strings.TrimSpace(mustRun(t, "token"))
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected a JWT, got %q", tok)
	}
	if out := mustRun(t, "whoami"); !strings.Contains(out, "alice@example.com") {
		t.Fatalf("whoami output: %q", out)
	}
	rec, _ := b.LastRequest()
	if rec.Authorization != "Bearer "+tok {
		t.Fatalf("authorization = %q", rec.Authorization)
	}

	if out := mustRun(t, "logout"); !strings.Contains(out, "Logged out") {
		t.Fatalf("logout output: %q", out)
	}
	if out := mustRun(t, "status"); !strings.Contains(out, "Not logged in") {
		t.Fatalf("status after logout: %q", out)
	}
	if _, errOut, _ := executeCommand(t, nil, "token"); !strings.Contains(errOut, "No token stored") {
		t.Fatalf("token after logout: %q", errOut)
	}
}

func TestLoginPromptsForMissingCredentials(t *testing.T) {
	b := setupEnv(t)
	b.AddUser("alice", "alice@example.com", "secret", false)

	out, errOut, err := executeCommand(t, strings.NewReader("alice\nsecret\n"), "login")
	if err != nil {
		t.Fatalf("login: %v (%s)", err, errOut)
	}
	if !strings.Contains(errOut, "Username:") || !strings.Contains(errOut, "Password:") {
		t.Fatalf("expected prompts, got %q", errOut)
	}
	if !strings.Contains(out, "Logged in as alice") {
		t.Fatalf("login output: %q", out)
	}
}

func TestLoginRejected(t *testing.T) {
	b := setupEnv(t)
	b.AddUser("alice", "alice@example.com", "secret", false)

	_, errOut, err := executeCommand(t, nil, "login", "-u", "alice", "-p", "nope")
	var gerr *gateway.Error
	if !errors.As(err, &gerr) || !errors.Is(err, gateway.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !strings.Contains(errOut, "用户名或密码错误") {
		t.Fatalf("expected backend detail as toast, got %q", errOut)
	}
	if out := mustRun(t, "status"); !strings.Contains(out, "Not logged in") {
		t.Fatalf("status: %q", out)
	}
}

func TestUserCommands(t *testing.T) {
	b := setupEnv(t)
	b.AddUser("admin", "admin@example.com", "secret", true)
	mustRun(t, "login", "-u", "admin", "-p", "secret")

	out := mustRun(t, "user", "create", "-u", "bob", "-e", "bob@example.com", "-p", "pw", "--inactive")
	if !strings.Contains(out, "User bob created (id 2)") {
		t.Fatalf("create output: %q", out)
	}

	out = mustRun(t, "user", "list", "--limit", "10")
	if !strings.Contains(out, "bob@example.com") || !strings.Contains(out, "inactive") || !strings.Contains(out, "Total: 2") {
		t.Fatalf("list output: %q", out)
	}
	rec, _ := b.LastRequest()
	if rec.Query.Get("limit") != "10" || rec.Query.Get("page") != "1" {
		t.Fatalf("list query: %v", rec.Query)
	}

	out = mustRun(t, "user", "update", "2", "--active", "--email", "robert@example.com")
	if !strings.Contains(out, "User 2 updated") {
		t.Fatalf("update output: %q", out)
	}
	out = mustRun(t, "user", "show", "2")
	if !strings.Contains(out, "robert@example.com") || !strings.Contains(out, "active") || !strings.Contains(out, "Updated:") {
		t.Fatalf("show output: %q", out)
	}

	out = mustRun(t, "user", "delete", "2")
	if !strings.Contains(out, "User 2 deleted") {
		t.Fatalf("delete output: %q", out)
	}
	_, errOut, err := executeCommand(t, nil, "user", "show", "2")
	if !errors.Is(err, gateway.ErrNotFound) || !strings.Contains(errOut, "用户不存在") {
		t.Fatalf("expected not found, got %v / %q", err, errOut)
	}
}

func TestUserCommandArgumentErrors(t *testing.T) {
	setupEnv(t)
	if _, _, err := executeCommand(t, nil, "user", "show", "abc"); err == nil {
		t.Fatal("expected invalid id error")
	}
	if _, _, err := executeCommand(t, nil, "user", "update", "3"); err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Fatalf("expected nothing-to-update error, got %v", err)
	}
	if _, _, err := executeCommand(t, nil, "user", "update", "3", "--active", "--inactive"); err == nil {
		t.Fatal("expected mutually exclusive error")
	}
}

func TestUserCreateValidationNotSent(t *testing.T) {
	b := setupEnv(t)
	_, errOut, err := executeCommand(t, nil, "user", "create", "-u", "bob", "-e", "not-an-email", "-p", "pw")
	if !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(errOut, "Invalid input") {
		t.Fatalf("stderr: %q", errOut)
	}
	if n := len(b.Requests()); n != 0 {
		t.Fatalf("expected no request, got %d", n)
	}
}

func TestSessionExpiryPrintsLoginHint(t *testing.T) {
	b := setupEnv(t)
	b.AddUser("alice", "alice@example.com", "secret", true)
	mustRun(t, "login", "-u", "alice", "-p", "secret")
	b.Fail(http.MethodGet, "/users", http.StatusUnauthorized, "")

	_, errOut, err := executeCommand(t, nil, "user", "list")
	if !errors.Is(err, gateway.ErrSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
	if !strings.Contains(errOut, "Session expired") || !strings.Contains(errOut, "usermgr login") {
		t.Fatalf("stderr: %q", errOut)
	}
	if out := mustRun(t, "status"); !strings.Contains(out, "Not logged in") {
		t.Fatalf("status: %q", out)
	}
}

func TestNetworkFailure(t *testing.T) {
	b := setupEnv(t)
	b.AddUser("alice", "alice@example.com", "secret", true)
	mustRun(t, "login", "-u", "alice", "-p", "secret")
	b.Server.Close()

	_, errOut, err := executeCommand(t, nil, "whoami")
	if !errors.Is(err, gateway.ErrNetwork) || !strings.Contains(errOut, "Network unreachable") {
		t.Fatalf("expected network error, got %v / %q", err, errOut)
	}
	if out := mustRun(t, "status"); !strings.Contains(out, "Logged in") {
		t.Fatalf("session should survive a network failure: %q", out)
	}
}

func TestRegister(t *testing.T) {
	setupEnv(t)
	out := mustRun(t, "register", "-u", "carol", "-e", "carol@example.com", "-p", "pw")
	if !strings.Contains(out, "Registered user carol (id 1)") {
		t.Fatalf("register output: %q", out)
	}
}

func TestDefaultConfigWritten(t *testing.T) {
	setupEnv(t)
	mustRun(t, "status")
	path := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "usermgr", "usermgr.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config at %s: %v", path, err)
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	setupEnv(t)
	if _, _, err := executeCommand(t, nil, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "status"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := executeCommand(t, nil, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "version:") || !strings.Contains(out, "commit:") {
		t.Fatalf("version output: %q", out)
	}
}
