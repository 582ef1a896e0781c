// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the payloads exchanged with the user-management
// backend. Field names follow the backend's JSON contract.
package model // import "github.com/toeirei/usermgr/internal/model"

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User is a remote user record. It is fetched per view and never cached.
type User struct {
	ID        int        `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	IsActive  bool       `json:"is_active"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt Timestamp  `json:"created_at"`
	UpdatedAt *Timestamp `json:"updated_at"` // nil until the first update
}

// String returns a human-readable representation of the user.
func (u User) String() string {
	return fmt.Sprintf("%s <%s>", u.Username, u.Email)
}

// Credentials are exchanged for a bearer token. They travel form-encoded.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is the response of the token endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Registration is the self-service sign-up payload.
type Registration struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserCreate is the admin payload for creating a user.
type UserCreate struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=1"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=1"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.Password == nil && u.IsActive == nil
}

// UserListParams are the query parameters of the user list endpoint.
type UserListParams struct {
	Page   int    `json:"page,omitempty" validate:"gte=0"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Search string `json:"search,omitempty"`
}

// UserList is a page of users. The backend may answer with {data, total} or
// with a bare array; both decode into UserList.
type UserList struct {
	Data  []User `json:"data"`
	Total int    `json:"total"`
}

// UnmarshalJSON accepts both the paginated envelope and a bare array.
func (l *UserList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var users []User
		if err := json.Unmarshal(trimmed, &users); err != nil {
			return err
		}
		l.Data = users
		l.Total = len(users)
		return nil
	}
	type envelope UserList
	var e envelope
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return err
	}
	*l = UserList(e)
	return nil
}

// timestampLayouts are tried in order. The backend emits naive ISO-8601
// datetimes without a zone, which time.Time's own decoder rejects.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a time.Time that decodes the backend's datetime formats.
// Naive values are interpreted as UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses a quoted datetime string or null.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		ts.Time = time.Time{}
		return nil
	}
	unq, err := unquoteJSON(s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if t, perr := time.ParseInLocation(layout, unq, time.UTC); perr == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", unq)
}

// MarshalJSON writes the timestamp in RFC 3339.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

func unquoteJSON(s string) (string, error) {
	var out string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return "", err
	}
	return out, nil
}
