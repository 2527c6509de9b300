// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/middleware"
	requestutil "github.com/taibuivan/gatekeeper/internal/platform/request"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
)

// # Definitions & Constructors

// Handler implements the legacy login endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns the /v1/auth router.
//
// # Endpoints
//   - POST /token      : Exchanges credentials for a session token (user scope).
//   - POST /invalidate : Deletes the presented session token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.With(middleware.RequireScope(sec.ScopeUser)).Post("/token", handler.token)
	router.With(middleware.RequireAuth).Post("/invalidate", handler.invalidate)

	return router
}

/*
POST /v1/auth/token.

Request:
  - Body: {username|email|mobile, password}, form or JSON

Response:
  - 200: Session: {"key", "user"}
  - 400: No identifier or no password
  - 401: The user credentials were incorrect
*/
func (handler *Handler) token(writer http.ResponseWriter, request *http.Request) {
	values, err := requestutil.DecodeValues(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	credentials := identity.Credentials{}
	for _, field := range []string{identity.FieldUsername, identity.FieldEmail, identity.FieldMobile, identity.FieldPassword} {
		if value := values[field]; value != "" {
			credentials[field] = value
		}
	}

	validator := &validate.Validator{}
	validator.Custom(identity.FieldUsername, len(identity.Normalize(credentials).Indexes()) == 0, "A username, email or mobile is required")
	validator.Required(identity.FieldPassword, credentials[identity.FieldPassword])
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), credentials)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
POST /v1/auth/invalidate.

Response:
  - 204: Token deleted, or nothing to delete
*/
func (handler *Handler) invalidate(writer http.ResponseWriter, request *http.Request) {
	if token := request.Header.Get(constants.HeaderSessionToken); token != "" {
		if err := handler.authService.Logout(request.Context(), token); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	respond.NoContent(writer)
}
