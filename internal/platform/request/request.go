// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package requestutil reads path parameters, JSON bodies and the caller
// identity off an incoming request.
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/ctxutil"
	"github.com/taibuivan/accounts/internal/platform/sec"
)

// maxBodyBytes caps JSON request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes exactly one JSON value from the body into target.
// Unknown keys, trailing data and oversize bodies are all reported as a
// VALIDATION_ERROR.
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.ValidationError("Request body too large")
		}
		return apperr.ValidationError("Invalid JSON payload")
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.ValidationError("Invalid JSON payload")
	}
	return nil
}

// Param returns the named chi path parameter, or "" when absent.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// RequiredIdentity returns the identity set by the authentication middleware
// or an Unauthorized error for anonymous requests.
func RequiredIdentity(request *http.Request) (sec.Identity, error) {
	identity, ok := ctxutil.GetIdentity(request.Context())
	if !ok {
		return sec.Identity{}, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}
