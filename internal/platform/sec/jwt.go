// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces.
//
// # Token Purposes
//
// Two token kinds are issued: access tokens and password-reset tokens. Each kind
// is signed with its own key, derived from the server secret with HKDF and a
// purpose salt, and carries its purpose as the audience. A reset token can
// therefore never verify as an access token, and vice versa.
package sec

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// # Purposes & Errors

const (
	// PurposeAccess is the HKDF salt and audience of access tokens.
	PurposeAccess = "accounts.access.v1"

	// PurposeReset is the HKDF salt and audience of password-reset tokens.
	PurposeReset = "accounts.reset.v1"

	// MinSecretLength is the minimum accepted length of the server secret in bytes.
	MinSecretLength = 32

	keyInfo   = "hs256-signing-key"
	keyLength = 32
)

var (
	// ErrTokenInvalid covers bad signatures, purpose mismatches and malformed input.
	ErrTokenInvalid = errors.New("sec: token is invalid")

	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("sec: token has expired")
)

// # Claims

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// By embedding the account ID, username and role directly inside the JWT,
// the [middleware.Authenticate] can reconstruct the caller identity without
// a database round-trip.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   int64  `json:"uid"`
	Username string `json:"unm"`
	Role     string `json:"rol"`
}

// Identity returns the caller identity asserted by the claims.
func (claims *AuthClaims) Identity() Identity {
	return Identity{ID: claims.UserID, Username: claims.Username, Role: Role(claims.Role)}
}

// ResetClaims is the payload of a password-reset token. The account id pins
// the token to one account even if its email is later reassigned.
type ResetClaims struct {
	jwt.RegisteredClaims

	AccountID int64  `json:"uid"`
	Email     string `json:"eml"`
}

// Identity is the account snapshot an access token is issued for.
type Identity struct {
	ID       int64
	Username string
	Role     Role
}

// # Token Service

// TokenConfig configures a [TokenService].
type TokenConfig struct {
	// Secret is the server secret both signing keys are derived from.
	Secret string
	// Issuer is the 'iss' claim written into and required on every token.
	Issuer string
	// AccessTTL bounds access tokens. Zero means access tokens never expire.
	AccessTTL time.Duration
	// ResetTTL bounds reset tokens. It must be positive.
	ResetTTL time.Duration
}

// TokenOption customises a [TokenService].
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) {
		service.now = now
	}
}

// TokenService handles generation and verification of HS256 JWT tokens.
type TokenService struct {
	accessKey []byte
	resetKey  []byte
	issuer    string
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

// NewTokenService derives the purpose keys and returns a ready service.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("sec: token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.ResetTTL <= 0 {
		return nil, errors.New("sec: reset token ttl must be positive")
	}
	if cfg.AccessTTL < 0 {
		return nil, errors.New("sec: access token ttl must not be negative")
	}

	accessKey, err := deriveKey(cfg.Secret, PurposeAccess)
	if err != nil {
		return nil, err
	}
	resetKey, err := deriveKey(cfg.Secret, PurposeReset)
	if err != nil {
		return nil, err
	}

	service := &TokenService{
		accessKey: accessKey,
		resetKey:  resetKey,
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTTL,
		resetTTL:  cfg.ResetTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// deriveKey expands the server secret into a purpose-bound HMAC key.
func deriveKey(secret, purpose string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), []byte(purpose), []byte(keyInfo))
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("sec: failed to derive %s key: %w", purpose, err)
	}
	return key, nil
}

// AccessTTL returns the configured access token lifetime (zero means never).
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// ResetTTL returns the configured reset token lifetime.
func (service *TokenService) ResetTTL() time.Duration { return service.resetTTL }

// IssueAccessToken creates a signed access token for an account snapshot.
func (service *TokenService) IssueAccessToken(identity Identity) (string, error) {
	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(identity.ID, 10),
			Issuer:   service.issuer,
			Audience: jwt.ClaimStrings{PurposeAccess},
			IssuedAt: jwt.NewNumericDate(currentTime),
		},
		UserID:   identity.ID,
		Username: identity.Username,
		Role:     string(identity.Role),
	}
	if service.accessTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(currentTime.Add(service.accessTTL))
	}

	return service.sign(claims, service.accessKey)
}

// IssueResetToken creates a signed, time-boxed reset token for the account
// accountID that owns email at issuance.
func (service *TokenService) IssueResetToken(accountID int64, email string) (string, error) {
	currentTime := service.now()
	claims := ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    service.issuer,
			Audience:  jwt.ClaimStrings{PurposeReset},
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.resetTTL)),
		},
		AccountID: accountID,
		Email:     email,
	}

	return service.sign(claims, service.resetKey)
}

func (service *TokenService) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// VerifyAccessToken checks the signature, purpose and expiry of an access token.
//
// It returns [ErrTokenInvalid] or [ErrTokenExpired]; it never panics on malformed input.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if err := service.parse(tokenString, claims, service.accessKey, PurposeAccess); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 || claims.Username == "" || !Role(claims.Role).Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyResetToken checks a reset token and returns the account id and email
// it was issued for.
func (service *TokenService) VerifyResetToken(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	err := service.parse(tokenString, claims, service.resetKey, PurposeReset, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.AccountID <= 0 || claims.Email == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// parse verifies the signature before any claim so that a forged token is
// always reported as invalid, never as expired.
func (service *TokenService) parse(tokenString string, claims jwt.Claims, key []byte, purpose string, extra ...jwt.ParserOption) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(purpose),
		jwt.WithIssuer(service.issuer),
		jwt.WithTimeFunc(service.now),
		jwt.WithStrictDecoding(),
	}
	parser := jwt.NewParser(append(options, extra...)...)

	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})

	switch {
	case err == nil && token != nil && token.Valid:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
