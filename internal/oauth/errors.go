// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an RFC 6749 error. It renders as {"error": code, "message": ...}.
type Error struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// # Error Codes

const (
	CodeInvalidClient        = "invalid_client"
	CodeInvalidGrant         = "invalid_grant"
	CodeInvalidRequest       = "invalid_request"
	CodeInvalidScope         = "invalid_scope"
	CodeUnsupportedGrantType = "unsupported_grant_type"
	CodeAccessDenied         = "access_denied"
)

// # Constructors

// ErrInvalidClient is returned for an unknown client or a wrong secret.
var ErrInvalidClient = &Error{
	Code:       CodeInvalidClient,
	Message:    "Client authentication failed.",
	HTTPStatus: http.StatusUnauthorized,
}

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = &Error{
	Code:       CodeInvalidGrant,
	Message:    "The user credentials were incorrect.",
	HTTPStatus: http.StatusBadRequest,
}

// ErrUnsupportedGrantType is returned for a grant_type the server does not run.
var ErrUnsupportedGrantType = &Error{
	Code:       CodeUnsupportedGrantType,
	Message:    "The authorization grant type is not supported by the authorization server.",
	HTTPStatus: http.StatusBadRequest,
}

// InvalidRequest reports a missing or malformed parameter.
func InvalidRequest(parameter string) *Error {
	return &Error{
		Code:       CodeInvalidRequest,
		Message:    fmt.Sprintf("The request is missing or has an invalid %q parameter.", parameter),
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidGrant reports an unusable refresh token.
func InvalidGrant(message string) *Error {
	return &Error{Code: CodeInvalidGrant, Message: message, HTTPStatus: http.StatusBadRequest}
}

// InvalidScope reports a scope outside what may be granted.
func InvalidScope(scope string) *Error {
	return &Error{
		Code:       CodeInvalidScope,
		Message:    fmt.Sprintf("The requested scope %q is invalid, unknown, or malformed.", scope),
		HTTPStatus: http.StatusBadRequest,
	}
}

// AccessDenied reports an action on a token owned by someone else.
func AccessDenied(message string) *Error {
	return &Error{Code: CodeAccessDenied, Message: message, HTTPStatus: http.StatusForbidden}
}

// AsError extracts the [*Error] from err's chain. It returns nil if not found.
func AsError(err error) *Error {
	var oauthError *Error
	if errors.As(err, &oauthError) {
		return oauthError
	}
	return nil
}
