// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema centralises table and column names used in SQL statements.
package schema

// AccountTable represents the 'accounts' table
type AccountTable struct {
	Table        string
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	Active       string
	CreatedAt    string
	UpdatedAt    string
}

// Account is the schema definition for accounts
var Account = AccountTable{
	Table:        "accounts",
	ID:           "id",
	Username:     "username",
	Email:        "email",
	FirstName:    "first_name",
	LastName:     "last_name",
	PasswordHash: "password_hash",
	Role:         "role",
	Active:       "active",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
}

// Columns returns all column names in scan order
func (t AccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.FirstName, t.LastName,
		t.PasswordHash, t.Role, t.Active, t.CreatedAt, t.UpdatedAt,
	}
}
