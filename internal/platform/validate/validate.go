// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate accumulates field errors so that one response can report
// every problem with an input at once.
//
//	v := &validate.Validator{}
//	v.Required("email", email).Email("email", email)
//	if err := v.Err(); err != nil {
//		return err // VALIDATION_ERROR with one detail per failed rule
//	}
//
// A Validator is single-use and not safe for concurrent use.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/accounts/internal/platform/apperr"
)

// usernamePattern keeps usernames safe to embed in URL paths.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Validator records failed rules. The zero value is ready to use.
type Validator struct {
	failures []apperr.FieldError
}

func (v *Validator) fail(field, format string, args ...any) *Validator {
	v.failures = append(v.failures, apperr.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// Required fails on an empty or blank value.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) != "" {
		return v
	}
	return v.fail(field, "This field is required")
}

// MinLen and MaxLen count characters, not bytes.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) >= min {
		return v
	}
	return v.fail(field, "Minimum %d characters", min)
}

func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) <= max {
		return v
	}
	return v.fail(field, "Maximum %d characters", max)
}

// MaxBytes bounds the encoded size. bcrypt ignores everything past 72 bytes,
// so passwords are checked with this rather than MaxLen.
func (v *Validator) MaxBytes(field, value string, max int) *Validator {
	if len(value) <= max {
		return v
	}
	return v.fail(field, "Maximum %d bytes", max)
}

// Email accepts a bare RFC 5322 address. Display-name forms such as
// "Alice <a@x.com>" are rejected.
func (v *Validator) Email(field, value string) *Validator {
	if address, err := mail.ParseAddress(value); err == nil && address.Address == value {
		return v
	}
	return v.fail(field, "Must be a valid email address")
}

// Username rejects characters outside letters, digits, dot, underscore and
// hyphen. An empty value is left to [Validator.Required].
func (v *Validator) Username(field, value string) *Validator {
	if value == "" || usernamePattern.MatchString(value) {
		return v
	}
	return v.fail(field, "May only contain letters, digits, dots, underscores and hyphens")
}

// HasErrors reports whether any rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.failures) > 0
}

// Err returns nil when every rule passed, otherwise a VALIDATION_ERROR
// carrying each failure as a detail.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.failures...)
}
