// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package policy decides who may read, change, list and delete accounts.

[Evaluate] is a pure function: it performs no I/O and depends only on its
[Request]. Callers load the requester and target accounts first and pass
their immutable ids and current roles.

Rules, applied in order:

 1. Updating your own account without touching role or active: Allow.
 2. Updating another account, or changing role/active: Deny unless ADMIN.
 3. An ADMIN may update their own record but never another ADMIN's.
 4. Delete: ADMIN only, and never yourself or another ADMIN.
 5. Reading another account: ADMIN or the account owner.
 6. Listing every account: ADMIN only.
*/
package policy

import "github.com/taibuivan/accounts/internal/platform/sec"

// Action is the operation a requester wants to perform on a target.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Stable deny reasons, surfaced to clients as "Permission denied: <reason>".
const (
	ReasonNotOwner         = "you may only access your own account"
	ReasonPrivilegedFields = "only administrators may change role or active status"
	ReasonPeerAdmin        = "administrators cannot modify other administrators"
	ReasonDeleteNotAdmin   = "only administrators may delete accounts"
	ReasonDeleteSelf       = "administrators cannot delete their own account"
	ReasonDeletePeerAdmin  = "administrators cannot delete other administrators"
	ReasonListNotAdmin     = "only administrators may list accounts"
	ReasonUnknownAction    = "unknown action"
)

// Subject is the part of an account the policy looks at.
type Subject struct {
	ID   int64
	Role sec.Role
}

// IsAdmin reports whether the subject holds the ADMIN role.
func (subject Subject) IsAdmin() bool {
	return subject.Role.IsAdmin()
}

// Request is the input of a single decision.
type Request struct {
	Requester Subject
	// Target is ignored for ActionList.
	Target Subject
	Action Action

	// ChangesRole and ChangesActive describe an ActionUpdate patch.
	ChangesRole   bool
	ChangesActive bool
}

// Decision is the outcome of [Evaluate].
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Evaluate applies the account rules to request.
func Evaluate(request Request) Decision {
	requester := request.Requester
	target := request.Target
	isSelf := requester.ID == target.ID

	switch request.Action {
	case ActionRead:
		if isSelf || requester.IsAdmin() {
			return allow()
		}
		return deny(ReasonNotOwner)

	case ActionUpdate:
		privileged := request.ChangesRole || request.ChangesActive
		if isSelf && !privileged {
			return allow()
		}
		if !requester.IsAdmin() {
			if privileged {
				return deny(ReasonPrivilegedFields)
			}
			return deny(ReasonNotOwner)
		}
		if !isSelf && target.IsAdmin() {
			return deny(ReasonPeerAdmin)
		}
		return allow()

	case ActionDelete:
		if !requester.IsAdmin() {
			return deny(ReasonDeleteNotAdmin)
		}
		if isSelf {
			return deny(ReasonDeleteSelf)
		}
		if target.IsAdmin() {
			return deny(ReasonDeletePeerAdmin)
		}
		return allow()

	case ActionList:
		if requester.IsAdmin() {
			return allow()
		}
		return deny(ReasonListNotAdmin)

	default:
		return deny(ReasonUnknownAction)
	}
}
