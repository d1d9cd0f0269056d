// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages user accounts: registration, login, password reset,
profile updates and deletion.

# Architecture

  - Entities: Account, Patch (explicit optional-field update).
  - Contracts: Repository (credential store), ResetLedger (single-use reset tokens).
  - Service: Orchestrates hashing, token issuance, mail and the authorization policy.
  - Handler: Thin JSON delivery layer over [Service].

Accounts are addressed by username in URLs. Ownership checks always compare
the immutable numeric id, so renaming an account never changes who owns it.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/policy"
)

// # Domain Entities

// Account is a registered user of the system.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"` // Never expose the hash
	Role         sec.Role  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the claims snapshot an access token is issued for.
func (account *Account) Identity() sec.Identity {
	return sec.Identity{ID: account.ID, Username: account.Username, Role: account.Role}
}

// Subject returns the view of the account the authorization policy needs.
func (account *Account) Subject() policy.Subject {
	return policy.Subject{ID: account.ID, Role: account.Role}
}

// Patch lists the fields of an update. A nil field is left untouched.
type Patch struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Password  *string
	Role      *string
	Active    *bool
}

// ChangesRole reports whether the patch carries a role.
func (patch Patch) ChangesRole() bool { return patch.Role != nil }

// ChangesActive reports whether the patch carries the active flag.
func (patch Patch) ChangesActive() bool { return patch.Active != nil }

// IsEmpty reports whether the patch carries no field at all.
func (patch Patch) IsEmpty() bool {
	return patch.Username == nil && patch.Email == nil && patch.FirstName == nil &&
		patch.LastName == nil && patch.Password == nil && patch.Role == nil && patch.Active == nil
}

// # Repository Contracts

// Repository defines the persistence contract for accounts.
//
// Lookups return apperr.NotFound when no row matches. Insert and Update
// return apperr.DuplicateIdentity when the username or email is taken.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)

	/*
		Insert persists a new account and fills in its ID and timestamps.

		Returns:
		  - int64: The generated account id
		  - error: apperr.DuplicateIdentity or storage failures
	*/
	Insert(ctx context.Context, account *Account) (int64, error)

	// Update overwrites every mutable column of the account.
	Update(ctx context.Context, account *Account) error

	// Delete removes the account permanently.
	Delete(ctx context.Context, id int64) error

	List(ctx context.Context, limit, offset int) ([]Account, error)
	Count(ctx context.Context) (int, error)

	/*
		WithinTx runs fn against a repository bound to a single transaction.

		The transaction commits when fn returns nil and rolls back otherwise.
	*/
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

// ResetLedger remembers which reset tokens have already been redeemed.
type ResetLedger interface {
	// Consume marks token as used. It returns false if it was used before.
	Consume(ctx context.Context, token string, ttl time.Duration) (bool, error)
	// Release forgets a consumed token so it can be redeemed again. It is
	// called when the password write after Consume fails.
	Release(ctx context.Context, token string) error
}
