// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/accounts/internal/platform/middleware"
	requestutil "github.com/taibuivan/accounts/internal/platform/request"
	"github.com/taibuivan/accounts/internal/platform/respond"
	"github.com/taibuivan/accounts/pkg/pagination"
)

// UserRoutes returns a [chi.Router] with the authenticated user resource.
//
// # Endpoints
//   - GET    /           : Lists accounts (administrators only).
//   - GET    /{username} : Reads an account.
//   - PUT    /{username} : Partially updates an account.
//   - DELETE /{username} : Deletes an account.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", handler.list)
		r.Get("/{username}", handler.get)
		r.Put("/{username}", handler.update)
		r.Delete("/{username}", handler.delete)
	})

	return router
}

// updateRequest mirrors [Patch]: absent keys stay nil and are left untouched.
type updateRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
	Active    *bool   `json:"active"`
}

/*
List returns a page of accounts.

GET /api/v1/users?page=1&limit=20

Response:
  - 200: Paginated accounts
  - 403: PERMISSION_DENIED for non-administrators
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	accounts, total, err := handler.accountService.List(request.Context(), identity, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, accounts, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
Get returns a single account.

GET /api/v1/users/{username}
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Get(request.Context(), identity, requestutil.Param(request, FieldUsername))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
Update applies a partial update.

PUT /api/v1/users/{username}

Response:
  - 200: Updated account
  - 400: VALIDATION_ERROR, INVALID_ROLE or DUPLICATE_IDENTITY
  - 403: PERMISSION_DENIED
  - 404: NOT_FOUND
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Update(request.Context(), identity, requestutil.Param(request, FieldUsername), Patch(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
Delete removes an account permanently.

DELETE /api/v1/users/{username}
*/
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.Delete(request.Context(), identity, requestutil.Param(request, FieldUsername)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Account deleted"})
}
