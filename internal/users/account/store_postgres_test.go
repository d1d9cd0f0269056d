// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/account"
)

var accountColumns = []string{
	"id", "username", "email", "first_name", "last_name",
	"password_hash", "role", "active", "created_at", "updated_at",
}

var stamp = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func aliceRow() *pgxmock.Rows {
	return pgxmock.NewRows(accountColumns).
		AddRow(int64(1), "alice", "a@x.com", "Alice", "", "$2a$hash", "USER", true, stamp, stamp)
}

func TestPostgresRepository_Find(t *testing.T) {
	tests := []struct {
		name      string
		find      func(*account.PostgresRepository) (*account.Account, error)
		setupMock func(mock pgxmock.PgxPoolIface)
		wantCode  string
		wantErr   bool
	}{
		{
			name: "by username",
			find: func(repo *account.PostgresRepository) (*account.Account, error) {
				return repo.FindByUsername(context.Background(), "alice")
			},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM accounts WHERE username = \$1`).
					WithArgs("alice").
					WillReturnRows(aliceRow())
			},
		},
		{
			name: "by email",
			find: func(repo *account.PostgresRepository) (*account.Account, error) {
				return repo.FindByEmail(context.Background(), "a@x.com")
			},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
					WithArgs("a@x.com").
					WillReturnRows(aliceRow())
			},
		},
		{
			name: "by id",
			find: func(repo *account.PostgresRepository) (*account.Account, error) {
				return repo.FindByID(context.Background(), 1)
			},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(aliceRow())
			},
		},
		{
			name: "no rows maps to not found",
			find: func(repo *account.PostgresRepository) (*account.Account, error) {
				return repo.FindByUsername(context.Background(), "ghost")
			},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM accounts WHERE username = \$1`).
					WithArgs("ghost").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr:  true,
			wantCode: apperr.CodeNotFound,
		},
		{
			name: "driver error is wrapped",
			find: func(repo *account.PostgresRepository) (*account.Account, error) {
				return repo.FindByEmail(context.Background(), "a@x.com")
			},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
					WithArgs("a@x.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			got, err := tt.find(account.NewPostgresRepository(mock))

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantCode != "" {
					assert.True(t, apperr.HasCode(err, tt.wantCode))
				} else {
					assert.False(t, apperr.IsAppError(err))
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(1), got.ID)
				assert.Equal(t, "alice", got.Username)
				assert.Equal(t, sec.RoleUser, got.Role)
				assert.True(t, got.Active)
				assert.Equal(t, stamp, got.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPostgresRepository_Insert(t *testing.T) {
	candidate := func() *account.Account {
		return &account.Account{
			Username:     "bob",
			Email:        "b@x.com",
			PasswordHash: "$2a$hash",
			Role:         sec.RoleUser,
			Active:       true,
		}
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantCode  string
	}{
		{
			name: "returns generated columns",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs("bob", "b@x.com", "", "", "$2a$hash", "USER", true).
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), stamp, stamp))
			},
		},
		{
			name: "unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs("bob", "b@x.com", "", "", "$2a$hash", "USER", true).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_username_key"})
			},
			wantCode: apperr.CodeDuplicateIdentity,
		},
		{
			name: "check violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs("bob", "b@x.com", "", "", "$2a$hash", "USER", true).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
			},
			wantCode: apperr.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			row := candidate()
			id, err := account.NewPostgresRepository(mock).Insert(context.Background(), row)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
				assert.Zero(t, id)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(7), id)
				assert.Equal(t, int64(7), row.ID)
				assert.Equal(t, stamp, row.UpdatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_Update(t *testing.T) {
	later := stamp.Add(time.Hour)
	row := &account.Account{ID: 3, Username: "cara", Email: "c@x.com", PasswordHash: "h", Role: sec.RoleAdmin, Active: false}

	t.Run("refreshes updated_at", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE accounts`).
			WithArgs(int64(3), "cara", "c@x.com", "", "", "h", "ADMIN", false).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(later))

		require.NoError(t, account.NewPostgresRepository(mock).Update(context.Background(), row))
		assert.Equal(t, later, row.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE accounts`).
			WithArgs(int64(3), "cara", "c@x.com", "", "", "h", "ADMIN", false).
			WillReturnError(pgx.ErrNoRows)

		err := account.NewPostgresRepository(mock).Update(context.Background(), row)
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	})

	t.Run("unique violation", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE accounts`).
			WithArgs(int64(3), "cara", "c@x.com", "", "", "h", "ADMIN", false).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := account.NewPostgresRepository(mock).Update(context.Background(), row)
		assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateIdentity))
	})
}

func TestPostgresRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		result   pgconn.CommandTag
		execErr  error
		wantCode string
		wantErr  bool
	}{
		{name: "deleted", result: pgxmock.NewResult("DELETE", 1)},
		{name: "missing row", result: pgxmock.NewResult("DELETE", 0), wantErr: true, wantCode: apperr.CodeNotFound},
		{name: "driver error", execErr: errors.New("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			expectation := mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).WithArgs(int64(9))
			if tt.execErr != nil {
				expectation.WillReturnError(tt.execErr)
			} else {
				expectation.WillReturnResult(tt.result)
			}

			err := account.NewPostgresRepository(mock).Delete(context.Background(), 9)
			if !tt.wantErr {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode != "", apperr.HasCode(err, apperr.CodeNotFound))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_ListAndCount(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(`SELECT .+ FROM accounts ORDER BY id LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(aliceRow().
			AddRow(int64(2), "root", "root@x.com", "", "", "$2a$hash", "ADMIN", true, stamp, stamp))

	repo := account.NewPostgresRepository(mock)

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	accounts, err := repo.List(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice", accounts[0].Username)
	assert.Equal(t, sec.RoleAdmin, accounts[1].Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_WithinTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).
			WithArgs(int64(4)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		err := account.NewPostgresRepository(mock).WithinTx(context.Background(), func(tx account.Repository) error {
			return tx.Delete(context.Background(), 4)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		denied := apperr.PermissionDenied("nope")
		err := account.NewPostgresRepository(mock).WithinTx(context.Background(), func(account.Repository) error {
			return denied
		})
		assert.ErrorIs(t, err, denied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		called := false
		err := account.NewPostgresRepository(mock).WithinTx(context.Background(), func(account.Repository) error {
			called = true
			return nil
		})
		assert.ErrorContains(t, err, "pool exhausted")
		assert.False(t, called)
	})
}
