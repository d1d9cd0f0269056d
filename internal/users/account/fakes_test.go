// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/account"
)

// # In-memory Repository

type memStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]account.Account
}

// memRepository is an in-memory credential store with the same error
// contract as the Postgres repository.
type memRepository struct {
	store *memStore
	// staged holds uncommitted rows while inside WithinTx.
	staged map[int64]account.Account
	// hideLookups simulates a concurrent insert racing the availability check.
	hideLookups bool
	// updateErr, when set, fails every Update as a store outage would.
	updateErr error
}

func newMemRepository() *memRepository {
	return &memRepository{store: &memStore{accounts: map[int64]account.Account{}}}
}

func (repository *memRepository) rows() map[int64]account.Account {
	if repository.staged != nil {
		return repository.staged
	}
	return repository.store.accounts
}

func (repository *memRepository) lock() func() {
	if repository.staged != nil {
		return func() {}
	}
	repository.store.mu.Lock()
	return repository.store.mu.Unlock
}

func (repository *memRepository) find(match func(account.Account) bool) (*account.Account, error) {
	defer repository.lock()()
	if repository.hideLookups {
		return nil, apperr.NotFound("Account")
	}
	for _, row := range repository.rows() {
		if match(row) {
			found := row
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (repository *memRepository) FindByUsername(_ context.Context, username string) (*account.Account, error) {
	return repository.find(func(row account.Account) bool { return row.Username == username })
}

func (repository *memRepository) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	return repository.find(func(row account.Account) bool { return row.Email == email })
}

func (repository *memRepository) FindByID(_ context.Context, id int64) (*account.Account, error) {
	return repository.find(func(row account.Account) bool { return row.ID == id })
}

func (repository *memRepository) clashes(candidate account.Account) bool {
	for _, row := range repository.rows() {
		if row.ID == candidate.ID {
			continue
		}
		if row.Username == candidate.Username || row.Email == candidate.Email {
			return true
		}
	}
	return false
}

func (repository *memRepository) Insert(_ context.Context, candidate *account.Account) (int64, error) {
	defer repository.lock()()
	if repository.clashes(*candidate) {
		return 0, apperr.DuplicateIdentity()
	}
	repository.store.nextID++
	candidate.ID = repository.store.nextID
	candidate.CreatedAt = time.Now()
	candidate.UpdatedAt = candidate.CreatedAt
	repository.rows()[candidate.ID] = *candidate
	return candidate.ID, nil
}

func (repository *memRepository) Update(_ context.Context, candidate *account.Account) error {
	defer repository.lock()()
	if repository.updateErr != nil {
		return repository.updateErr
	}
	if _, ok := repository.rows()[candidate.ID]; !ok {
		return apperr.NotFound("Account")
	}
	if repository.clashes(*candidate) {
		return apperr.DuplicateIdentity()
	}
	candidate.UpdatedAt = time.Now()
	repository.rows()[candidate.ID] = *candidate
	return nil
}

func (repository *memRepository) Delete(_ context.Context, id int64) error {
	defer repository.lock()()
	if _, ok := repository.rows()[id]; !ok {
		return apperr.NotFound("Account")
	}
	delete(repository.rows(), id)
	return nil
}

func (repository *memRepository) List(_ context.Context, limit, offset int) ([]account.Account, error) {
	defer repository.lock()()
	all := make([]account.Account, 0, len(repository.rows()))
	for _, row := range repository.rows() {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return []account.Account{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (repository *memRepository) Count(_ context.Context) (int, error) {
	defer repository.lock()()
	return len(repository.rows()), nil
}

// WithinTx stages writes on a copy and publishes them only when fn succeeds.
func (repository *memRepository) WithinTx(ctx context.Context, fn func(account.Repository) error) error {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	staged := make(map[int64]account.Account, len(repository.store.accounts))
	for id, row := range repository.store.accounts {
		staged[id] = row
	}

	if err := fn(&memRepository{store: repository.store, staged: staged}); err != nil {
		return err
	}
	repository.store.accounts = staged
	return nil
}

func (repository *memRepository) get(t *testing.T, username string) *account.Account {
	t.Helper()
	found, err := repository.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return found
}

// # Ledger, Mailer & Clock

type memLedger struct {
	mu   sync.Mutex
	used map[string]bool
	err  error
}

func newMemLedger() *memLedger { return &memLedger{used: map[string]bool{}} }

func (ledger *memLedger) Consume(_ context.Context, token string, _ time.Duration) (bool, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if ledger.err != nil {
		return false, ledger.err
	}
	if ledger.used[token] {
		return false, nil
	}
	ledger.used[token] = true
	return true, nil
}

func (ledger *memLedger) Release(_ context.Context, token string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	delete(ledger.used, token)
	return nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (mailer *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.err != nil {
		return mailer.err
	}
	mailer.sent = append(mailer.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(d)
}

var errBoom = errors.New("boom")

// # Fixture

type fixture struct {
	service *account.Service
	repo    *memRepository
	ledger  *memLedger
	mailer  *fakeMailer
	tokens  *sec.TokenService
	clock   *fakeClock
	hasher  *sec.BcryptHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Secret:    "fixture-secret-fixture-secret-fixture",
		Issuer:    "accounts.test",
		AccessTTL: 15 * time.Minute,
		ResetTTL:  time.Hour,
	}, sec.WithClock(clock.Now))
	require.NoError(t, err)

	f := &fixture{
		repo:   newMemRepository(),
		ledger: newMemLedger(),
		mailer: &fakeMailer{},
		tokens: tokens,
		clock:  clock,
		hasher: sec.NewBcryptHasher(bcrypt.MinCost),
	}
	f.service = account.NewService(
		f.repo, f.ledger, f.hasher, f.tokens, f.mailer,
		account.ServiceConfig{PasswordMinLength: 1, FrontendURL: "http://frontend.test/", MailTimeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

// withHasher rebuilds the service around hasher, keeping every other fake.
func (f *fixture) withHasher(hasher sec.PasswordHasher) {
	f.service = account.NewService(
		f.repo, f.ledger, hasher, f.tokens, f.mailer,
		account.ServiceConfig{PasswordMinLength: 1, FrontendURL: "http://frontend.test/", MailTimeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// countingHasher counts Verify calls on top of a real hasher.
type countingHasher struct {
	sec.PasswordHasher
	verifies atomic.Int64
}

func (hasher *countingHasher) Verify(plainTextPassword, digest string) bool {
	hasher.verifies.Add(1)
	return hasher.PasswordHasher.Verify(plainTextPassword, digest)
}

// register creates an active USER through the service.
func (f *fixture) register(t *testing.T, username, password string) *account.Account {
	t.Helper()
	created, err := f.service.Register(context.Background(), account.RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: password,
	})
	require.NoError(t, err)
	return created
}

// seedAdmin creates an active ADMIN through the service.
func (f *fixture) seedAdmin(t *testing.T, username string) *account.Account {
	t.Helper()
	admin, created, err := f.service.EnsureAdmin(context.Background(), account.SeedAdminInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "admin-password",
	})
	require.NoError(t, err)
	require.True(t, created)
	return admin
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperr.HasCode(err, code), "want %s, got %v", code, err)
}
