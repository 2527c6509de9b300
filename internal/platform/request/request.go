// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package request

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
)

// maxFormMemory bounds form bodies parsed by [DecodeValues].
const maxFormMemory = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
DecodeValues reads a flat set of string parameters from a form or JSON body.

OAuth clients send application/x-www-form-urlencoded while the first-party
apps send JSON; both end up as the same map. Array values in JSON bodies are
joined with a single space, matching the form encoding of scopes.

Returns:
  - map[string]string: Parameter values
  - error: validate.ErrInvalidJSON if the body cannot be parsed
*/
func DecodeValues(request *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		raw := map[string]any{}
		if err := json.NewDecoder(request.Body).Decode(&raw); err != nil {
			return nil, validate.ErrInvalidJSON
		}
		return flatten(raw), nil
	}

	if err := request.ParseMultipartForm(maxFormMemory); err != nil && err != http.ErrNotMultipart {
		return nil, apperr.ValidationError("Invalid form payload")
	}

	values := make(map[string]string, len(request.Form))
	for key := range request.Form {
		values[key] = request.Form.Get(key)
	}
	return values, nil
}

// flatten converts decoded JSON values into strings.
func flatten(raw map[string]any) map[string]string {
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch typed := value.(type) {
		case string:
			values[key] = typed
		case []any:
			parts := make([]string, 0, len(typed))
			for _, part := range typed {
				if s, ok := part.(string); ok {
					parts = append(parts, s)
				}
			}
			values[key] = strings.Join(parts, " ")
		case nil:
		default:
			encoded, _ := json.Marshal(typed)
			values[key] = string(encoded)
		}
	}
	return values
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Principal extracts the authenticated principal from the request context.

Returns nil if the request is not authenticated.
*/
func Principal(request *http.Request) *sec.Principal {
	return ctxutil.GetPrincipal(request.Context())
}

/*
RequiredPrincipal ensures the request is authenticated and returns the principal.

Returns:
  - *sec.Principal: The authenticated caller
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredPrincipal(request *http.Request) (*sec.Principal, error) {
	principal := ctxutil.GetPrincipal(request.Context())
	if principal == nil {
		return nil, apperr.Unauthorized("Unauthenticated.")
	}
	return principal, nil
}

/*
RequiredUserID returns the User ID of the end user behind the request.

Returns:
  - string: User UUID
  - error: apperr.Unauthorized if not authenticated as a user
*/
func RequiredUserID(request *http.Request) (string, error) {
	principal, err := RequiredPrincipal(request)
	if err != nil {
		return "", err
	}

	// Application-only credentials carry no user
	if !principal.HasUser() {
		return "", apperr.Unauthorized("Unauthenticated.")
	}

	return principal.UserID, nil
}
