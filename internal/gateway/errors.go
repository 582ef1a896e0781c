// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package gateway

import (
	"errors"
)

// Kind is the classification of a failed call.
type Kind int

const (
	KindOK Kind = iota
	KindValidation
	KindAuth
	KindSessionExpired
	KindPermission
	KindNotFound
	KindServer
	KindNetwork
	KindFailed
)

var kindNames = map[Kind]string{
	KindOK:             "ok",
	KindValidation:     "validation",
	KindAuth:           "auth",
	KindSessionExpired: "session_expired",
	KindPermission:     "permission",
	KindNotFound:       "not_found",
	KindServer:         "server",
	KindNetwork:        "network",
	KindFailed:         "failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Sentinel errors, one per Kind. A *Error matches its kind's sentinel with
// errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuth           = errors.New("authentication failed")
	ErrSessionExpired = errors.New("session expired")
	ErrPermission     = errors.New("permission denied")
	ErrNotFound       = errors.New("not found")
	ErrServer         = errors.New("server error")
	ErrNetwork        = errors.New("network unreachable")
	ErrFailed         = errors.New("operation failed")
)

var kindErrors = map[Kind]error{
	KindValidation:     ErrValidation,
	KindAuth:           ErrAuth,
	KindSessionExpired: ErrSessionExpired,
	KindPermission:     ErrPermission,
	KindNotFound:       ErrNotFound,
	KindServer:         ErrServer,
	KindNetwork:        ErrNetwork,
	KindFailed:         ErrFailed,
}

// Error is the classified failure every gateway call rejects with. Message
// is the localized text that was delivered to the notifier.
type Error struct {
	Kind      Kind
	Status    int    // HTTP status, 0 when no response was received
	Message   string // user-facing message
	Detail    string // backend-provided detail, if any
	RequestID string
	Err       error // underlying transport/decoding error, if any
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s, ok := kindErrors[e.Kind]; ok {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the Kind of the first *Error in err's chain, or KindFailed
// for any other non-nil error.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindFailed
}
