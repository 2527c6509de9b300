// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/middleware"
	requestutil "github.com/taibuivan/gatekeeper/internal/platform/request"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
	"github.com/taibuivan/gatekeeper/pkg/pointer"
)

// Handler implements the HTTP layer for user records.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// UserRoutes returns the /v1/users router.
//
// # Endpoints
//   - POST /            : Upsert (admin scope).
//   - GET  /{term}/{id} : Lookup by one index (user scope; admin for email and mobile).
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()

	router.With(middleware.RequireScope(sec.ScopeAdmin)).Post("/", handler.upsert)
	router.With(middleware.RequireScope(sec.ScopeUser)).Get("/{term}/{id}", handler.show)

	return router
}

// ProfileRoutes returns the /v1/profile router.
func (handler *Handler) ProfileRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.profile)

	return router
}

/*
POST /v1/users.

Description: Creates a user or updates the one matching a given index.

Request:
  - Query: upsert=false refuses to update an existing match
  - Body: UpsertInput

Response:
  - 201: User: Created
  - 200: User: Updated
  - 400: Validation failure or index conflict
*/
func (handler *Handler) upsert(writer http.ResponseWriter, request *http.Request) {
	var input UpsertInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.Upsert == nil {
		if raw := request.URL.Query().Get("upsert"); raw != "" {
			upsert, err := strconv.ParseBool(raw)
			if err != nil {
				respond.Error(writer, request, validate.RequiredError("upsert", "Must be a boolean"))
				return
			}
			input.Upsert = pointer.To(upsert)
		}
	}

	user, created, err := handler.accountService.Upsert(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if created {
		respond.Created(writer, user)
		return
	}
	respond.OK(writer, user)
}

/*
GET /v1/users/{term}/{id}.

Response:
  - 200: User
  - 403: Email and mobile lookups without the admin scope
  - 404: Unknown term, or no single match
*/
func (handler *Handler) show(writer http.ResponseWriter, request *http.Request) {
	term := requestutil.Param(request, "term")

	if term == "email" || term == "mobile" {
		if err := sec.Gate(requestutil.Principal(request), sec.ScopeAdmin); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	user, err := handler.accountService.Show(request.Context(), term, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
GET /v1/profile.

Response:
  - 200: User: The authenticated user
  - 401: No user behind the credentials
*/
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Profile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
