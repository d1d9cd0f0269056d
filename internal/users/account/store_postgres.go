// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/database/schema"
	"github.com/taibuivan/accounts/internal/platform/dberr"
	"github.com/taibuivan/accounts/internal/platform/sec"
)

// DB is the subset of pgx shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a Postgres-backed credential store.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// resourceAccount names accounts in client-facing errors.
const resourceAccount = "Account"

var (
	accountColumns = strings.Join(schema.Account.Columns(), ", ")

	selectAccount = fmt.Sprintf(`SELECT %s FROM %s`, accountColumns, schema.Account.Table)

	insertAccount = fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s, %s, %s`,
		schema.Account.Table,
		schema.Account.Username, schema.Account.Email, schema.Account.FirstName,
		schema.Account.LastName, schema.Account.PasswordHash, schema.Account.Role, schema.Account.Active,
		schema.Account.ID, schema.Account.CreatedAt, schema.Account.UpdatedAt,
	)

	updateAccount = fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = NOW()
		WHERE %s = $1
		RETURNING %s`,
		schema.Account.Table,
		schema.Account.Username, schema.Account.Email, schema.Account.FirstName, schema.Account.LastName,
		schema.Account.PasswordHash, schema.Account.Role, schema.Account.Active, schema.Account.UpdatedAt,
		schema.Account.ID,
		schema.Account.UpdatedAt,
	)

	deleteAccount = fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Account.Table, schema.Account.ID)

	countAccounts = fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.Account.Table)
)

// # Lookups

// FindByUsername retrieves an account by its exact username.
func (repository *PostgresRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return repository.findOne(ctx, schema.Account.Username, username)
}

// FindByEmail retrieves an account by its exact email address.
func (repository *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return repository.findOne(ctx, schema.Account.Email, email)
}

// FindByID retrieves an account by its immutable id.
func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	return repository.findOne(ctx, schema.Account.ID, id)
}

func (repository *PostgresRepository) findOne(ctx context.Context, column string, value any) (*Account, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1`, selectAccount, column)

	account, err := scanAccount(repository.db.QueryRow(ctx, query, value))
	if err != nil {
		return nil, dberr.Translate(err, resourceAccount, "postgres_account_repo_find_by_"+column+"_failed")
	}

	return account, nil
}

// List returns one page of accounts ordered by id.
func (repository *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Account, error) {
	query := fmt.Sprintf(`%s ORDER BY %s LIMIT $1 OFFSET $2`, selectAccount, schema.Account.ID)

	rows, err := repository.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0, limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_account_repo_list_scan_failed: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}

	return accounts, nil
}

// Count returns the total number of accounts.
func (repository *PostgresRepository) Count(ctx context.Context) (int, error) {
	var total int64
	if err := repository.db.QueryRow(ctx, countAccounts).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}
	return int(total), nil
}

// # Mutations

// Insert persists a new account and fills in its generated columns.
func (repository *PostgresRepository) Insert(ctx context.Context, account *Account) (int64, error) {
	err := repository.db.QueryRow(ctx, insertAccount,
		account.Username,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		string(account.Role),
		account.Active,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return 0, dberr.Translate(err, resourceAccount, "postgres_account_repo_insert_failed")
	}

	return account.ID, nil
}

// Update overwrites the mutable columns and refreshes updated_at.
func (repository *PostgresRepository) Update(ctx context.Context, account *Account) error {
	err := repository.db.QueryRow(ctx, updateAccount,
		account.ID,
		account.Username,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		string(account.Role),
		account.Active,
	).Scan(&account.UpdatedAt)

	if err != nil {
		return dberr.Translate(err, resourceAccount, "postgres_account_repo_update_failed")
	}

	return nil
}

// Delete removes the account row.
func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := repository.db.Exec(ctx, deleteAccount, id)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceAccount)
	}
	return nil
}

// WithinTx runs fn inside a single transaction.
func (repository *PostgresRepository) WithinTx(ctx context.Context, fn func(Repository) error) error {
	transaction, err := repository.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_begin_failed: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer transaction.Rollback(ctx)

	if err := fn(&PostgresRepository{db: transaction}); err != nil {
		return err
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_account_repo_commit_failed: %w", err)
	}
	return nil
}

// # Helpers

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	var role string

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&account.PasswordHash,
		&role,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Role = sec.Role(role)
	return account, nil
}
