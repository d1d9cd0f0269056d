// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/accounts/internal/platform/apperr"
)

// Translate classifies a pgx error.
//
//   - pgx.ErrNoRows becomes apperr.NotFound(resource).
//   - A unique violation becomes apperr.DuplicateIdentity.
//   - A check violation becomes apperr.ValidationError.
//   - Anything else is wrapped with operation and left for the 500 path.
func Translate(err error, resource, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	switch Code(err) {
	case pgerrcode.UniqueViolation:
		return apperr.DuplicateIdentity()
	case pgerrcode.CheckViolation:
		return apperr.ValidationError(resource + " data violates a constraint")
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// Code returns the SQLSTATE of a Postgres error, or "" for other errors.
func Code(err error) string {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		return pgError.Code
	}
	return ""
}
