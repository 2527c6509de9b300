// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/middleware"
	requestutil "github.com/taibuivan/gatekeeper/internal/platform/request"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
)

// revokedMessage is returned for every accepted revocation, known token or not.
const revokedMessage = "That refresh token has been successfully revoked."

// # Definitions & Constructors

// Handler implements the OAuth and client management endpoints.
type Handler struct {
	server  *Server
	clients *ClientService
}

// NewHandler constructs a new [Handler].
func NewHandler(server *Server, clients *ClientService) *Handler {
	return &Handler{server: server, clients: clients}
}

// Routes returns the /oauth router.
//
// # Endpoints
//   - POST /access_token     : Runs a grant.
//   - POST /invalidate_token : Revokes a refresh token.
//   - GET  /authorize        : Reserved, answers 501.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/access_token", handler.accessToken)
	router.Get("/authorize", handler.authorize)

	router.With(middleware.RequireAuth).Post("/invalidate_token", handler.invalidateToken)

	return router
}

// ClientRoutes returns the /v1/clients router. Every endpoint requires the admin scope.
func (handler *Handler) ClientRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireScope(sec.ScopeAdmin))

	router.Post("/", handler.createClient)
	router.Get("/{client_id}", handler.getClient)

	return router
}

// # Request Payloads

type createClientRequest struct {
	AppID string   `json:"app_id"`
	Scope []string `json:"scope"`
}

/*
accessToken runs the grant named by grant_type.

POST /oauth/access_token

Request:
  - Body: form or JSON with grant_type, client_id, client_secret, and the
    grant's own parameters. Client credentials may also arrive as HTTP Basic.

Response:
  - 200: TokenResponse
  - 400/401: RFC 6749 error body
*/
func (handler *Handler) accessToken(writer http.ResponseWriter, request *http.Request) {
	values, err := requestutil.DecodeValues(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input := TokenRequest{
		GrantType:    values["grant_type"],
		ClientID:     values["client_id"],
		ClientSecret: values["client_secret"],
		Username:     values["username"],
		Password:     values["password"],
		RefreshToken: values["refresh_token"],
		Scopes:       strings.Fields(values["scope"]),
	}

	if id, secret, ok := request.BasicAuth(); ok && input.ClientID == "" {
		input.ClientID = id
		input.ClientSecret = secret
	}

	response, err := handler.server.IssueToken(request.Context(), input)
	if err != nil {
		writeError(writer, request, err)
		return
	}

	writer.Header().Set("Cache-Control", "no-store")
	respond.JSON(writer, http.StatusOK, response)
}

/*
invalidateToken revokes a refresh token of the authenticated user.

POST /oauth/invalidate_token

Request:
  - Body: token (required), token_type_hint (refresh_token if present)

Response:
  - 200: Revocation message, also for tokens that cannot be read
  - 400: Validation error
  - 403: access_denied for another user's token
*/
func (handler *Handler) invalidateToken(writer http.ResponseWriter, request *http.Request) {
	values, err := requestutil.DecodeValues(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("token", values["token"])
	if hint, ok := values["token_type_hint"]; ok {
		validator.OneOf("token_type_hint", hint, GrantRefreshToken)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.server.InvalidateToken(request.Context(), requestutil.Principal(request), values["token"]); err != nil {
		writeError(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, revokedMessage)
}

// authorize is reserved for the authorization code grant.
func (handler *Handler) authorize(writer http.ResponseWriter, request *http.Request) {
	respond.Error(writer, request, apperr.NotImplemented("Not yet implemented."))
}

/*
createClient registers a new client.

POST /v1/clients

Response:
  - 201: Client, secret included
  - 400: Validation error on app_id
*/
func (handler *Handler) createClient(writer http.ResponseWriter, request *http.Request) {
	var input createClientRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	client, err := handler.clients.Create(request.Context(), input.AppID, input.Scope)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, client)
}

// getClient returns one client. GET /v1/clients/{client_id}
func (handler *Handler) getClient(writer http.ResponseWriter, request *http.Request) {
	client, err := handler.clients.Find(request.Context(), requestutil.Param(request, "client_id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, client)
}

// writeError renders OAuth errors as RFC 6749 bodies and everything else
// through the standard envelope.
func writeError(writer http.ResponseWriter, request *http.Request, err error) {
	if oauthError := AsError(err); oauthError != nil {
		respond.JSON(writer, oauthError.HTTPStatus, oauthError)
		return
	}
	respond.Error(writer, request, err)
}
