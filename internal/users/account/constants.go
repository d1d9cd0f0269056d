// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

// # Field Constraints

const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	EmailMaxLength    = 100
	NameMaxLength     = 50

	// PasswordMaxBytes is the bcrypt input limit.
	PasswordMaxBytes = 72
)

// # Request Fields

const (
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldNewPassword = "new_password"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldRole        = "role"
	FieldActive      = "active"
	FieldToken       = "token"
)

// # Operation Names

const (
	opRegister      = "register"
	opAuthenticate  = "authenticate"
	opRequestReset  = "request_reset"
	opCompleteReset = "complete_reset"
	opGet           = "get"
	opList          = "list"
	opUpdate        = "update"
	opDelete        = "delete"
	opEnsureAdmin   = "ensure_admin"
)

// resetPath is appended to the frontend URL in password reset mails.
const resetPath = "/reset_password"
