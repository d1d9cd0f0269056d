// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/ctxutil"
	"github.com/taibuivan/accounts/internal/platform/mail"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/platform/validate"
)

// # Contracts & Types

// TokenIssuer issues and verifies the two token kinds the service needs.
// It is satisfied by [*sec.TokenService].
type TokenIssuer interface {
	IssueAccessToken(identity sec.Identity) (string, error)
	IssueResetToken(accountID int64, email string) (string, error)
	VerifyResetToken(token string) (*sec.ResetClaims, error)
	AccessTTL() time.Duration
	ResetTTL() time.Duration
}

// ServiceConfig holds the tunables of the account service.
type ServiceConfig struct {
	// PasswordMinLength is the minimum number of characters in a new password.
	PasswordMinLength int
	// FrontendURL is the base of the link sent in reset mails.
	FrontendURL string
	// MailTimeout bounds a single reset mail delivery.
	MailTimeout time.Duration
}

// ServiceOption customises a [Service].
type ServiceOption func(*Service)

// WithMetrics records operation outcomes and policy decisions into m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(service *Service) {
		service.metrics = m
	}
}

// Service implements the account use cases.
//
// All collaborators are injected; the service holds no global state and is
// safe for concurrent use.
type Service struct {
	repository Repository
	ledger     ResetLedger
	hasher     sec.PasswordHasher
	tokens     TokenIssuer
	mailer     mail.Sender
	metrics    *metrics.Metrics
	cfg        ServiceConfig
	logger     *slog.Logger

	// unknownDigest is compared against when a username does not exist, so
	// a miss costs the same hashing work as a wrong password.
	unknownDigest func() string
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	repository Repository,
	ledger ResetLedger,
	hasher sec.PasswordHasher,
	tokens TokenIssuer,
	mailer mail.Sender,
	cfg ServiceConfig,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if cfg.PasswordMinLength < 1 {
		cfg.PasswordMinLength = 1
	}
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = 10 * time.Second
	}

	service := &Service{
		repository: repository,
		ledger:     ledger,
		hasher:     hasher,
		tokens:     tokens,
		mailer:     mailer,
		cfg:        cfg,
		logger:     logger,
	}
	service.unknownDigest = sync.OnceValue(func() string {
		digest, err := hasher.Hash("unknown-account-placeholder")
		if err != nil {
			return ""
		}
		return digest
	})
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

/*
Register validates, hashes, and persists a brand new user account.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *Account: Created entity (role USER, active)
  - error: ValidationError, DuplicateIdentity or storage errors
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (_ *Account, err error) {
	defer func() { service.metrics.RecordOperation(opRegister, err) }()

	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	validator := &validate.Validator{}
	service.validateUsername(validator, input.Username)
	service.validateEmail(validator, input.Email)
	validator.MaxLen(FieldFirstName, input.FirstName, NameMaxLength).
		MaxLen(FieldLastName, input.LastName, NameMaxLength)
	service.validatePassword(validator, FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Fail fast on known clashes; the unique indexes still catch races.
	if err := service.ensureAvailable(ctx, service.repository, input.Username, input.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	account := &Account{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
		Active:       true,
	}

	if _, err := service.repository.Insert(ctx, account); err != nil {
		return nil, wrapStoreError("account_service_register_failed", err)
	}

	service.log(ctx).InfoContext(ctx, "account_registered",
		slog.Int64("user_id", account.ID),
		slog.String("username", account.Username),
	)

	return account, nil
}

// # Authentication Flow

// LoginResult is the outcome of a successful [Service.Authenticate].
type LoginResult struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"` // Seconds; 0 when the token never expires
	Account     *Account `json:"user"`
}

/*
Authenticate verifies credentials and issues an access token.

The active flag is checked before the password, so a deactivated account
reports AccountInactive whether or not the password is right.

Returns:
  - *LoginResult: Access token and account snapshot
  - error: InvalidCredentials, AccountInactive or internal failures
*/
func (service *Service) Authenticate(ctx context.Context, username, password string) (_ *LoginResult, err error) {
	defer func() { service.metrics.RecordOperation(opAuthenticate, err) }()

	account, err := service.repository.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			service.hasher.Verify(password, service.unknownDigest())
			return nil, apperr.InvalidCredentials()
		}
		return nil, fmt.Errorf("account_service_authenticate_lookup_failed: %w", err)
	}

	if !account.Active {
		return nil, apperr.AccountInactive()
	}

	if !service.hasher.Verify(password, account.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	accessToken, err := service.tokens.IssueAccessToken(account.Identity())
	if err != nil {
		return nil, fmt.Errorf("account_service_token_generation_failed: %w", err)
	}

	service.log(ctx).InfoContext(ctx, "account_authenticated", slog.Int64("user_id", account.ID))

	return &LoginResult{
		AccessToken: accessToken,
		TokenType:   constants.TokenTypeBearer,
		ExpiresIn:   int64(service.tokens.AccessTTL().Seconds()),
		Account:     account,
	}, nil
}

// # Password Recovery

/*
RequestReset issues a reset token for the account registered under email and
mails the reset link to that address.

A mail delivery failure is logged and does not fail the call; the token has
already been issued and stays valid.

Returns:
  - string: The reset token
  - error: ValidationError, NotFound (generic, never says which field missed)
*/
func (service *Service) RequestReset(ctx context.Context, email string) (_ string, err error) {
	defer func() { service.metrics.RecordOperation(opRequestReset, err) }()

	email = normalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).Email(FieldEmail, email)
	if err := validator.Err(); err != nil {
		return "", err
	}

	account, err := service.repository.FindByEmail(ctx, email)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return "", apperr.NotFound("Account")
		}
		return "", fmt.Errorf("account_service_request_reset_lookup_failed: %w", err)
	}

	// Deactivated accounts may still reset a forgotten password.
	token, err := service.tokens.IssueResetToken(account.ID, account.Email)
	if err != nil {
		return "", fmt.Errorf("account_service_generate_reset_token_failed: %w", err)
	}

	service.sendResetMail(ctx, account, token)

	service.log(ctx).InfoContext(ctx, "password_reset_requested", slog.Int64("user_id", account.ID))

	return token, nil
}

/*
CompleteReset redeems a reset token and stores the new password.

Each token is accepted once; a second redemption reports TokenInvalid. The
token is bound to the account it was issued for, so it stops working when
that account's email moves elsewhere. A failed password write leaves the
token redeemable.

Returns:
  - error: TokenInvalid, TokenExpired, ValidationError or storage errors
*/
func (service *Service) CompleteReset(ctx context.Context, token, newPassword string) (err error) {
	defer func() { service.metrics.RecordOperation(opCompleteReset, err) }()

	claims, err := service.tokens.VerifyResetToken(token)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return apperr.TokenExpired()
		}
		return apperr.TokenInvalid()
	}

	validator := &validate.Validator{}
	service.validatePassword(validator, FieldNewPassword, newPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	account, err := service.repository.FindByEmail(ctx, claims.Email)
	if err != nil {
		// The email changed or the account was deleted after issuance.
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return apperr.TokenInvalid()
		}
		return fmt.Errorf("account_service_complete_reset_lookup_failed: %w", err)
	}
	if account.ID != claims.AccountID {
		// The address now belongs to a different account.
		return apperr.TokenInvalid()
	}

	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_reset_password_hash_failed: %w", err)
	}

	first, err := service.ledger.Consume(ctx, token, service.tokens.ResetTTL())
	if err != nil {
		return fmt.Errorf("account_service_consume_reset_token_failed: %w", err)
	}
	if !first {
		return apperr.TokenInvalid()
	}

	account.PasswordHash = hashedPassword
	if err := service.repository.Update(ctx, account); err != nil {
		if releaseErr := service.ledger.Release(context.WithoutCancel(ctx), token); releaseErr != nil {
			service.log(ctx).ErrorContext(ctx, "reset_token_release_failed",
				slog.Int64("user_id", account.ID),
				slog.String("error", releaseErr.Error()),
			)
		}
		return wrapStoreError("account_service_reset_password_update_failed", err)
	}

	service.log(ctx).InfoContext(ctx, "password_reset_completed", slog.Int64("user_id", account.ID))

	return nil
}

// sendResetMail delivers the reset link within the configured mail budget.
// The request context is detached so a client hang-up does not abort delivery.
func (service *Service) sendResetMail(ctx context.Context, account *Account, token string) {
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), service.cfg.MailTimeout)
	defer cancel()

	link := strings.TrimRight(service.cfg.FrontendURL, "/") + resetPath + "?token=" + url.QueryEscape(token)
	body := fmt.Sprintf(
		"Hello %s,\n\nTo reset your password, visit the following link:\n%s\n\n"+
			"The link expires in %s. If you did not request a reset, ignore this message.\n",
		account.Username, link, service.tokens.ResetTTL(),
	)

	if err := service.mailer.Send(mailCtx, account.Email, "Password reset request", body); err != nil {
		service.metrics.RecordMailFailure()
		service.log(ctx).WarnContext(ctx, "reset_mail_failed",
			slog.Int64("user_id", account.ID),
			slog.String("error", err.Error()),
		)
	}
}

// # Bootstrap

// SeedAdminInput describes the default administrator.
type SeedAdminInput struct {
	Username string
	Email    string
	Password string
}

/*
EnsureAdmin creates the default administrator unless an account with that
username already exists.

Returns:
  - *Account: The created or existing account
  - bool: true if the account was created by this call
  - error: ValidationError, DuplicateIdentity (email taken) or storage errors
*/
func (service *Service) EnsureAdmin(ctx context.Context, input SeedAdminInput) (_ *Account, _ bool, err error) {
	defer func() { service.metrics.RecordOperation(opEnsureAdmin, err) }()

	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)

	existing, err := service.repository.FindByUsername(ctx, input.Username)
	if err == nil {
		if !existing.Role.IsAdmin() {
			service.log(ctx).WarnContext(ctx, "seed_admin_username_taken_by_user", slog.Int64("user_id", existing.ID))
		}
		return existing, false, nil
	}
	if !apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, false, fmt.Errorf("account_service_seed_admin_lookup_failed: %w", err)
	}

	validator := &validate.Validator{}
	service.validateUsername(validator, input.Username)
	service.validateEmail(validator, input.Email)
	service.validatePassword(validator, FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, false, err
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, false, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	admin := &Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleAdmin,
		Active:       true,
	}
	if _, err := service.repository.Insert(ctx, admin); err != nil {
		return nil, false, wrapStoreError("account_service_seed_admin_failed", err)
	}

	service.log(ctx).InfoContext(ctx, "admin_seeded", slog.Int64("user_id", admin.ID))

	return admin, true, nil
}

// # Helpers

func (service *Service) log(ctx context.Context) *slog.Logger {
	if requestID := ctxutil.GetRequestID(ctx); requestID != "" {
		return service.logger.With(slog.String("request_id", requestID))
	}
	return service.logger
}

func (service *Service) validateUsername(validator *validate.Validator, username string) {
	validator.Required(FieldUsername, username).
		MinLen(FieldUsername, username, UsernameMinLength).
		MaxLen(FieldUsername, username, UsernameMaxLength).
		Username(FieldUsername, username)
}

func (service *Service) validateEmail(validator *validate.Validator, email string) {
	validator.Required(FieldEmail, email).
		MaxLen(FieldEmail, email, EmailMaxLength).
		Email(FieldEmail, email)
}

func (service *Service) validatePassword(validator *validate.Validator, field, password string) {
	validator.Required(field, password).
		MinLen(field, password, service.cfg.PasswordMinLength).
		MaxBytes(field, password, PasswordMaxBytes)
}

// ensureAvailable reports DuplicateIdentity if username or email is taken.
func (service *Service) ensureAvailable(ctx context.Context, repository Repository, username, email string) error {
	if _, err := repository.FindByUsername(ctx, username); err == nil {
		return apperr.DuplicateIdentity()
	} else if !apperr.HasCode(err, apperr.CodeNotFound) {
		return fmt.Errorf("account_service_username_lookup_failed: %w", err)
	}

	if _, err := repository.FindByEmail(ctx, email); err == nil {
		return apperr.DuplicateIdentity()
	} else if !apperr.HasCode(err, apperr.CodeNotFound) {
		return fmt.Errorf("account_service_email_lookup_failed: %w", err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// wrapStoreError keeps client-safe store errors intact and wraps the rest.
func wrapStoreError(operation string, err error) error {
	if apperr.IsAppError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", operation, err)
}
