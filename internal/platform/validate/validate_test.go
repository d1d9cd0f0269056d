// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/validate"
)

func TestRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  func(v *validate.Validator)
		fails bool
	}{
		{"required_ok", func(v *validate.Validator) { v.Required("f", "alice") }, false},
		{"required_empty", func(v *validate.Validator) { v.Required("f", "") }, true},
		{"required_blank", func(v *validate.Validator) { v.Required("f", " \t") }, true},

		{"min_len_runes", func(v *validate.Validator) { v.MinLen("f", "żółw", 4) }, false},
		{"min_len_short", func(v *validate.Validator) { v.MinLen("f", "ab", 3) }, true},
		{"max_len_runes", func(v *validate.Validator) { v.MaxLen("f", "ééé", 3) }, false},
		{"max_len_long", func(v *validate.Validator) { v.MaxLen("f", "abcd", 3) }, true},

		{"max_bytes_counts_bytes", func(v *validate.Validator) { v.MaxBytes("f", "ééé", 5) }, true},
		{"max_bytes_exact", func(v *validate.Validator) { v.MaxBytes("f", "ééé", 6) }, false},

		{"email_ok", func(v *validate.Validator) { v.Email("f", "alice@example.com") }, false},
		{"email_no_at", func(v *validate.Validator) { v.Email("f", "alice.example.com") }, true},
		{"email_no_domain", func(v *validate.Validator) { v.Email("f", "alice@") }, true},
		{"email_display_name", func(v *validate.Validator) { v.Email("f", "Alice <alice@example.com>") }, true},
		{"email_empty", func(v *validate.Validator) { v.Email("f", "") }, true},

		{"username_ok", func(v *validate.Validator) { v.Username("f", "alice.b_c-d") }, false},
		{"username_space", func(v *validate.Validator) { v.Username("f", "alice b") }, true},
		{"username_slash", func(v *validate.Validator) { v.Username("f", "alice/admin") }, true},
		{"username_empty_left_to_required", func(v *validate.Validator) { v.Username("f", "") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			tt.rule(v)

			assert.Equal(t, tt.fails, v.HasErrors())
			if !tt.fails {
				assert.NoError(t, v.Err())
				return
			}
			appErr := apperr.As(v.Err())
			require.NotNil(t, appErr)
			assert.Equal(t, apperr.CodeValidation, appErr.Code)
			assert.Equal(t, "f", appErr.Details[0].Field)
		})
	}
}

func TestValidator_CollectsEveryFailure(t *testing.T) {
	v := &validate.Validator{}
	err := v.Required("username", "").
		MinLen("username", "", 3).
		Email("email", "nope").
		MaxLen("first_name", "ok", 50).
		Err()

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	fields := make([]string, 0, len(appErr.Details))
	for _, detail := range appErr.Details {
		fields = append(fields, detail.Field)
	}
	assert.Equal(t, []string{"username", "username", "email"}, fields)
}
