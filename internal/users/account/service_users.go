// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/platform/validate"
	"github.com/taibuivan/accounts/internal/users/policy"
	"github.com/taibuivan/accounts/pkg/pagination"
	"github.com/taibuivan/accounts/pkg/pointer"
)

// # Profile Access

// Get returns the account registered under username.
func (service *Service) Get(ctx context.Context, requester sec.Identity, username string) (_ *Account, err error) {
	defer func() { service.metrics.RecordOperation(opGet, err) }()

	current, err := service.loadRequester(ctx, service.repository, requester)
	if err != nil {
		return nil, err
	}

	target, err := service.repository.FindByUsername(ctx, username)
	if err != nil {
		return nil, wrapStoreError("account_service_get_failed", err)
	}

	if err := service.authorize(policy.Request{
		Requester: current.Subject(),
		Target:    target.Subject(),
		Action:    policy.ActionRead,
	}); err != nil {
		return nil, err
	}

	return target, nil
}

// List returns one page of accounts and the total count. Administrators only.
func (service *Service) List(ctx context.Context, requester sec.Identity, params pagination.Params) (_ []Account, _ int, err error) {
	defer func() { service.metrics.RecordOperation(opList, err) }()

	current, err := service.loadRequester(ctx, service.repository, requester)
	if err != nil {
		return nil, 0, err
	}

	if err := service.authorize(policy.Request{Requester: current.Subject(), Action: policy.ActionList}); err != nil {
		return nil, 0, err
	}

	total, err := service.repository.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_count_failed: %w", err)
	}

	accounts, err := service.repository.List(ctx, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_failed: %w", err)
	}

	return accounts, total, nil
}

// # Mutations

/*
Update applies patch to the account registered under username.

The read-modify-write runs in one store transaction. Only present patch
fields are applied; a password is always rehashed.

Returns:
  - *Account: The updated account
  - error: PermissionDenied, InvalidRole, ValidationError, DuplicateIdentity, NotFound
*/
func (service *Service) Update(ctx context.Context, requester sec.Identity, username string, patch Patch) (_ *Account, err error) {
	defer func() { service.metrics.RecordOperation(opUpdate, err) }()

	if patch.IsEmpty() {
		return nil, apperr.ValidationError("No fields to update")
	}

	var updated *Account
	err = service.repository.WithinTx(ctx, func(tx Repository) error {
		current, err := service.loadRequester(ctx, tx, requester)
		if err != nil {
			return err
		}

		target, err := tx.FindByUsername(ctx, username)
		if err != nil {
			return err
		}

		if err := service.authorize(policy.Request{
			Requester:     current.Subject(),
			Target:        target.Subject(),
			Action:        policy.ActionUpdate,
			ChangesRole:   patch.ChangesRole(),
			ChangesActive: patch.ChangesActive(),
		}); err != nil {
			return err
		}

		if err := service.applyPatch(target, patch); err != nil {
			return err
		}

		if err := tx.Update(ctx, target); err != nil {
			return err
		}

		updated = target
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("account_service_update_failed", err)
	}

	service.log(ctx).InfoContext(ctx, "account_updated",
		slog.Int64("user_id", updated.ID),
		slog.Int64("by_user_id", requester.ID),
	)

	return updated, nil
}

// Delete permanently removes the account registered under username.
func (service *Service) Delete(ctx context.Context, requester sec.Identity, username string) (err error) {
	defer func() { service.metrics.RecordOperation(opDelete, err) }()

	var deletedID int64
	err = service.repository.WithinTx(ctx, func(tx Repository) error {
		current, err := service.loadRequester(ctx, tx, requester)
		if err != nil {
			return err
		}

		target, err := tx.FindByUsername(ctx, username)
		if err != nil {
			return err
		}

		if err := service.authorize(policy.Request{
			Requester: current.Subject(),
			Target:    target.Subject(),
			Action:    policy.ActionDelete,
		}); err != nil {
			return err
		}

		deletedID = target.ID
		return tx.Delete(ctx, target.ID)
	})
	if err != nil {
		return wrapStoreError("account_service_delete_failed", err)
	}

	service.log(ctx).InfoContext(ctx, "account_deleted",
		slog.Int64("user_id", deletedID),
		slog.Int64("by_user_id", requester.ID),
	)

	return nil
}

// # Helpers

// loadRequester reloads the caller so the current role and active flag are
// used instead of what the access token asserted at login time.
func (service *Service) loadRequester(ctx context.Context, repository Repository, requester sec.Identity) (*Account, error) {
	current, err := repository.FindByID(ctx, requester.ID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Account no longer exists")
		}
		return nil, fmt.Errorf("account_service_load_requester_failed: %w", err)
	}
	if !current.Active {
		return nil, apperr.AccountInactive()
	}
	return current, nil
}

func (service *Service) authorize(request policy.Request) error {
	decision := policy.Evaluate(request)
	service.metrics.RecordDecision(string(request.Action), decision.Allowed)
	if !decision.Allowed {
		return apperr.PermissionDenied(decision.Reason)
	}
	return nil
}

// applyPatch validates the present fields and copies them onto target.
func (service *Service) applyPatch(target *Account, patch Patch) error {
	validator := &validate.Validator{}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		service.validateUsername(validator, username)
		target.Username = username
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		service.validateEmail(validator, email)
		target.Email = email
	}
	if patch.FirstName != nil {
		target.FirstName = strings.TrimSpace(*patch.FirstName)
		validator.MaxLen(FieldFirstName, target.FirstName, NameMaxLength)
	}
	if patch.LastName != nil {
		target.LastName = strings.TrimSpace(*patch.LastName)
		validator.MaxLen(FieldLastName, target.LastName, NameMaxLength)
	}
	if patch.Password != nil {
		service.validatePassword(validator, FieldPassword, *patch.Password)
	}
	if err := validator.Err(); err != nil {
		return err
	}

	if patch.Role != nil {
		role, ok := sec.ParseRole(*patch.Role)
		if !ok {
			return apperr.InvalidRole(*patch.Role, sec.RoleNames()...)
		}
		target.Role = role
	}
	target.Active = pointer.Or(patch.Active, target.Active)

	if patch.Password != nil {
		hashedPassword, err := service.hasher.Hash(*patch.Password)
		if err != nil {
			return fmt.Errorf("account_service_update_hash_failed: %w", err)
		}
		target.PasswordHash = hashedPassword
	}

	return nil
}
