// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package session holds the client-side login state: the current bearer
// token, persisted in a storage.Store under a single key. The session is
// LOGGED_IN exactly when the token is non-empty.
//
// A token found in storage at startup is trusted without asking the
// backend; an expired token surfaces on the first call that gets a 401.
package session // import "github.com/toeirei/usermgr/internal/session"

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/logging"
	"github.com/toeirei/usermgr/internal/model"
	"github.com/toeirei/usermgr/internal/storage"
)

// TokenKey is the storage key holding the bearer token.
const TokenKey = "token"

// ErrNoAuthenticator is returned by Login before UseAuthenticator was called.
var ErrNoAuthenticator = errors.New("session: no authenticator configured")

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (model.Token, error)
}

// Store is the session store. It satisfies gateway.Session.
type Store struct {
	kv storage.Store

	mu    sync.RWMutex
	token string
	auth  Authenticator
}

var _ gateway.Session = (*Store)(nil)

// New restores the session persisted in kv.
func New(ctx context.Context, kv storage.Store) (*Store, error) {
	if kv == nil {
		return nil, errors.New("session: nil storage")
	}
	token, err := kv.Get(ctx, TokenKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("session: restore token: %w", err)
	}
	if token != "" {
		logging.Debugf("session: restored persisted token")
	}
	return &Store{kv: kv, token: token}, nil
}

// UseAuthenticator sets the token endpoint used by Login. The API client
// depends on the gateway, which depends on the session, so it is bound after
// construction.
func (s *Store) UseAuthenticator(a Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsLoggedIn reports whether a token is held.
func (s *Store) IsLoggedIn() bool {
	return s.Token() != ""
}

// Login exchanges creds for a token, persists it and marks the session
// logged in. On failure the previous state is kept and the error, which
// matches gateway.ErrAuth, is returned for the caller to report.
func (s *Store) Login(ctx context.Context, creds model.Credentials) error {
	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth == nil {
		return ErrNoAuthenticator
	}

	tok, err := auth.Login(ctx, creds)
	if err != nil {
		logging.Errorf("session: login failed for %q: %v", creds.Username, err)
		return fmt.Errorf("%w: %w", gateway.ErrAuth, err)
	}
	if tok.AccessToken == "" {
		logging.Errorf("session: login for %q returned an empty token", creds.Username)
		return fmt.Errorf("%w: empty access token", gateway.ErrAuth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, TokenKey, tok.AccessToken); err != nil {
		logging.Errorf("session: persist token: %v", err)
		return fmt.Errorf("session: persist token: %w", err)
	}
	s.token = tok.AccessToken
	logging.Infof("session: logged in as %q", creds.Username)
	return nil
}

// Logout clears the token in memory and in storage. It is idempotent. The
// in-memory state is cleared even when the storage delete fails; that error
// is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

// Expire logs out after the backend rejected the session. It reports whether
// a token was held; concurrent expiries clear storage once.
func (s *Store) Expire(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return false
	}
	if err := s.clearLocked(ctx); err != nil {
		logging.Warnf("session: expire: %v", err)
	}
	return true
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.token = ""
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("session: remove persisted token: %w", err)
	}
	return nil
}
