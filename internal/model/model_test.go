package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUserString(t *testing.T) {
	u := User{ID: 1, Username: "alice", Email: "alice@example.com"}
	if got, want := u.String(), "alice <alice@example.com>"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestUser_DecodeBackendPayload(t *testing.T) {
	raw := `{"id":5,"email":"bob@example.com","username":"bob","is_active":true,"is_admin":false,
		"created_at":"2024-03-01T10:20:30.123456","updated_at":null}`
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.ID != 5 || u.Username != "bob" || !u.IsActive || u.IsAdmin {
		t.Fatalf("unexpected user: %+v", u)
	}
	want := time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)
	if !u.CreatedAt.Equal(want) {
		t.Fatalf("created_at = %v, want %v", u.CreatedAt.Time, want)
	}
	if u.UpdatedAt != nil {
		t.Fatalf("expected nil updated_at, got %v", u.UpdatedAt)
	}
}

func TestTimestamp_RFC3339AndInvalid(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2024-03-01T10:20:30Z"`), &ts); err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if ts.Year() != 2024 {
		t.Fatalf("unexpected year %d", ts.Year())
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestUserList_DecodesEnvelopeAndBareArray(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantLen   int
		wantTotal int
	}{
		{"envelope", `{"data":[{"id":1,"username":"a"}],"total":42}`, 1, 42},
		{"bare array", `[{"id":1,"username":"a"},{"id":2,"username":"b"}]`, 2, 2},
		{"empty array", `[]`, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var l UserList
			if err := json.Unmarshal([]byte(tc.raw), &l); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(l.Data) != tc.wantLen || l.Total != tc.wantTotal {
				t.Fatalf("got len=%d total=%d, want len=%d total=%d", len(l.Data), l.Total, tc.wantLen, tc.wantTotal)
			}
		})
	}
}

func TestUserUpdate_OmitsNilFields(t *testing.T) {
	name := "carol"
	b, err := json.Marshal(UserUpdate{Username: &name})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"username":"carol"}` {
		t.Fatalf("unexpected payload %s", b)
	}
	if (UserUpdate{}).Empty() != true {
		t.Fatalf("zero update should be empty")
	}
}

func TestValidate_Registration(t *testing.T) {
	err := Registration{Username: "", Email: "not-an-email", Password: "x"}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T %v", err, err)
	}
	msg := verr.Error()
	if !strings.Contains(msg, "username is required") || !strings.Contains(msg, "email must be a valid email address") {
		t.Fatalf("unexpected message %q", msg)
	}

	if err := (Registration{Username: "a", Email: "a@example.com", Password: "x"}).Validate(); err != nil {
		t.Fatalf("expected valid registration, got %v", err)
	}
}

func TestValidate_CredentialsAndUpdate(t *testing.T) {
	if err := (Credentials{Username: "alice"}).Validate(); err == nil {
		t.Fatalf("expected missing password to fail")
	}
	bad := "nope"
	if err := (UserUpdate{Email: &bad}).Validate(); err == nil {
		t.Fatalf("expected invalid email to fail")
	}
	if err := (UserUpdate{}).Validate(); err != nil {
		t.Fatalf("empty update should validate, got %v", err)
	}
}
