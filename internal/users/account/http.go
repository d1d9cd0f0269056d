// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/accounts/internal/platform/request"
	"github.com/taibuivan/accounts/internal/platform/respond"
	"github.com/taibuivan/accounts/internal/platform/validate"
)

// # Definitions & Constructors

// HandlerConfig holds delivery-level switches.
type HandlerConfig struct {
	// ExposeResetTokens echoes the reset token in the response. Development only.
	ExposeResetTokens bool
}

// Handler implements the account HTTP endpoints.
//
// # Scope
//
// Two route groups are exposed: the public auth entry points (register, login,
// password reset) and the authenticated user resource.
type Handler struct {
	accountService *Service
	cfg            HandlerConfig
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, cfg HandlerConfig) *Handler {
	return &Handler{accountService: service, cfg: cfg}
}

// AuthRoutes returns a [chi.Router] with the public authentication routes.
//
// # Endpoints
//   - POST /register                : Creates a new account.
//   - POST /login                   : Authenticates and returns an access token.
//   - POST /reset-password/request  : Mails a reset link.
//   - POST /reset-password/complete : Sets a new password with a reset token.
func (handler *Handler) AuthRoutes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/reset-password/request", handler.requestReset)
	router.Post("/reset-password/complete", handler.completeReset)

	return router
}

// # Request Payloads

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type completeResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type resetResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Response:
  - 201: Account: Created account (no password hash)
  - 400: VALIDATION_ERROR or DUPLICATE_IDENTITY
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, account)
}

/*
Login authenticates a user and returns an access token.

POST /api/v1/auth/login

Response:
  - 200: LoginResult: access_token, token_type, expires_in, user
  - 401: INVALID_CREDENTIALS or ACCOUNT_INACTIVE
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.accountService.Authenticate(request.Context(), input.Username, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
RequestReset starts the forgot-password flow.

POST /api/v1/auth/reset-password/request

Response:
  - 200: Confirmation (token included only when exposure is enabled)
  - 404: NOT_FOUND
*/
func (handler *Handler) requestReset(writer http.ResponseWriter, request *http.Request) {
	var input resetRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, err := handler.accountService.RequestReset(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	response := resetResponse{Message: "Password reset instructions have been sent"}
	if handler.cfg.ExposeResetTokens {
		response.ResetToken = token
	}

	respond.OK(writer, response)
}

/*
CompleteReset finishes the forgot-password flow.

POST /api/v1/auth/reset-password/complete

Response:
  - 200: Confirmation
  - 400: TOKEN_INVALID, TOKEN_EXPIRED or VALIDATION_ERROR
*/
func (handler *Handler) completeReset(writer http.ResponseWriter, request *http.Request) {
	var input completeResetRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.CompleteReset(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Password has been reset"})
}

