// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names so messages match what the backend calls them.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// FieldError describes one rejected field.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return f.Field + " is required"
	case "email":
		return f.Field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", f.Field, f.Param)
	default:
		if f.Param != "" {
			return fmt.Sprintf("%s failed %s=%s", f.Field, f.Rule, f.Param)
		}
		return fmt.Sprintf("%s failed %s", f.Field, f.Rule)
	}
}

// ValidationError is returned when a payload is rejected before it is sent.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}

// Check runs the struct's validate tags and converts failures into a
// *ValidationError.
func Check(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// Validate implements the gateway's pre-send validation hook.
func (c Credentials) Validate() error { return Check(c) }

// Validate implements the gateway's pre-send validation hook.
func (r Registration) Validate() error { return Check(r) }

// Validate implements the gateway's pre-send validation hook.
func (u UserCreate) Validate() error { return Check(u) }

// Validate implements the gateway's pre-send validation hook.
func (u UserUpdate) Validate() error { return Check(u) }

// Validate implements the gateway's pre-send validation hook.
func (p UserListParams) Validate() error { return Check(p) }
