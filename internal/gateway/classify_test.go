package gateway

import (
	"errors"
	"testing"

	"github.com/toeirei/usermgr/internal/i18n"
)

func TestClassify(t *testing.T) {
	i18n.Init("en")

	cases := []struct {
		name       string
		resp       Response
		wantKind   Kind
		wantMsg    string
		wantExpire bool
	}{
		{"success", Response{StatusCode: 200, Body: []byte(`{}`)}, KindOK, "", false},
		{"created", Response{StatusCode: 201}, KindOK, "", false},
		{"detail wins", Response{StatusCode: 400, Body: []byte(`{"detail":"username already taken"}`)}, KindFailed, "username already taken", false},
		{"401 with detail", Response{StatusCode: 401, Body: []byte(`{"detail":"token revoked"}`)}, KindAuth, "token revoked", false},
		{"401 without detail", Response{StatusCode: 401}, KindSessionExpired, "Session expired, please log in again", true},
		{"401 empty detail", Response{StatusCode: 401, Body: []byte(`{"detail":""}`)}, KindSessionExpired, "Session expired, please log in again", true},
		{"403", Response{StatusCode: 403}, KindPermission, "Access denied", false},
		{"404", Response{StatusCode: 404, Body: []byte(`not json`)}, KindNotFound, "The requested resource does not exist", false},
		{"500", Response{StatusCode: 500}, KindServer, "Internal server error", false},
		{"502 generic message", Response{StatusCode: 502}, KindServer, "Operation failed", false},
		{"422 validation list", Response{StatusCode: 422, Body: []byte(`{"detail":[{"msg":"field required"},{"msg":"value is not a valid email"}]}`)}, KindValidation, "field required; value is not a valid email", false},
		{"418 generic", Response{StatusCode: 418}, KindFailed, "Operation failed", false},
		{"no response", Response{Err: errors.New("dial tcp: connection refused")}, KindNetwork, "Network unreachable, please check your connection", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := Classify(tc.resp)
			if o.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", o.Kind, tc.wantKind)
			}
			if o.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", o.Message, tc.wantMsg)
			}
			if o.ExpireSession != tc.wantExpire {
				t.Fatalf("ExpireSession = %v, want %v", o.ExpireSession, tc.wantExpire)
			}
		})
	}
}

func TestClassify_LocalizedMessages(t *testing.T) {
	i18n.Init("zh")
	defer i18n.Init("en")

	if got := Classify(Response{StatusCode: 404}).Message; got != "请求的资源不存在" {
		t.Fatalf("unexpected zh not-found message %q", got)
	}
	if got := Classify(Response{StatusCode: 401}).Message; got != "登录已过期，请重新登录" {
		t.Fatalf("unexpected zh session-expired message %q", got)
	}
}

func TestError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := error(&Error{Kind: KindNotFound, Message: "gone", Err: cause})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(err, ErrNotFound)")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is(err, cause)")
	}
	if errors.Is(err, ErrServer) {
		t.Fatalf("did not expect ErrServer match")
	}
	if err.Error() != "gone" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if KindOf(err) != KindNotFound || KindOf(errors.New("x")) != KindFailed || KindOf(nil) != KindOK {
		t.Fatalf("unexpected KindOf results")
	}
}
