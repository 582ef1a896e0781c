// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/toeirei/usermgr/internal/i18n"
)

// Response is what came back from one send: either a status and body, or a
// transport error when no response was received at all.
type Response struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Outcome is the classified result of a Response.
type Outcome struct {
	Kind    Kind
	Status  int
	Message string
	Detail  string
	// ExpireSession is set for a 401 without detail: the session must be
	// cleared and the UI sent to the login screen.
	ExpireSession bool
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool { return o.Kind == KindOK }

// Classify maps a response to an outcome. It has no side effects.
//
// A backend detail is used verbatim as the message. Without one, the message
// is chosen by status: 401 session expired, 403 forbidden, 404 not found,
// 500 internal server error, anything else a generic failure. No response at
// all is a network failure. Only a 401 without detail expires the session; one
// with a detail is an auth failure.
func Classify(r Response) Outcome {
	if r.Err != nil {
		return Outcome{Kind: KindNetwork, Message: i18n.T("gateway.network")}
	}
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return Outcome{Kind: KindOK, Status: r.StatusCode}
	}

	o := Outcome{Kind: kindForStatus(r.StatusCode), Status: r.StatusCode}
	if detail := extractDetail(r.Body); detail != "" {
		o.Detail = detail
		o.Message = detail
		return o
	}

	switch r.StatusCode {
	case http.StatusUnauthorized:
		o.Kind = KindSessionExpired
		o.Message = i18n.T("gateway.session_expired")
		o.ExpireSession = true
	case http.StatusForbidden:
		o.Message = i18n.T("gateway.forbidden")
	case http.StatusNotFound:
		o.Message = i18n.T("gateway.not_found")
	case http.StatusInternalServerError:
		o.Message = i18n.T("gateway.server_error")
	default:
		o.Message = i18n.T("gateway.failed")
	}
	return o
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindPermission
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServer
	default:
		return KindFailed
	}
}

// extractDetail reads the backend's {"detail": ...} field. A string is used
// as is; a list of validation items ({"msg": ...}) is joined.
func extractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
