// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package session

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the client can read from a JWT bearer token. Nothing here
// is verified; the signature is only checked by the backend.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp
}

// Expired reports whether the token's exp is in the past relative to now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the current token. ok is false when logged out or when the
// token is not a JWT.
func (s *Store) Claims() (Claims, bool) {
	return ParseClaims(s.Token())
}

// ParseClaims decodes token without verifying it.
func ParseClaims(token string) (Claims, bool) {
	if token == "" {
		return Claims{}, false
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, false
	}
	var c Claims
	// Some backends put the numeric user id in sub.
	switch sub := mc["sub"].(type) {
	case string:
		c.Subject = sub
	case float64:
		c.Subject = strconv.FormatFloat(sub, 'f', -1, 64)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, true
}
