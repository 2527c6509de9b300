// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package legacyprofile talks to Phoenix, the Drupal application that still owns
legacy member profiles.

Only two operations are needed: registering a profile for a new account and
finding the uid of an existing one by email. Callers treat every failure as
non-fatal.
*/
package legacyprofile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// # Errors

var (
	// ErrForbidden is returned when Phoenix refuses a registration, which it
	// does for addresses that already have a profile.
	ErrForbidden = errors.New("legacyprofile: forbidden")

	// ErrNotFound is returned when no profile matches a lookup.
	ErrNotFound = errors.New("legacyprofile: profile not found")
)

// # Client

// Doer executes HTTP requests. It is satisfied by the platform circuit breaker.
type Doer interface {
	Do(ctx context.Context, request *http.Request) (*http.Response, error)
}

// Config locates and authenticates against Phoenix.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// Account is the profile data sent on registration.
type Account struct {
	Email     string `json:"email"`
	Mobile    string `json:"mobile,omitempty"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
	Source    string `json:"user_registration_source,omitempty"`
}

// Client is the Phoenix API client.
type Client struct {
	baseURL  string
	username string
	password string
	doer     Doer
}

// New creates a Phoenix client.
func New(cfg Config, doer Doer) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		doer:     doer,
	}
}

// maxResponseBytes bounds what is read from a Phoenix answer.
const maxResponseBytes = 1 << 20

/*
Register creates a Phoenix profile and returns its uid.

Returns:
  - string: The new Drupal uid
  - error: ErrForbidden when the profile already exists, otherwise transport or decoding failures
*/
func (client *Client) Register(ctx context.Context, account Account) (string, error) {
	body, err := json.Marshal(account)
	if err != nil {
		return "", fmt.Errorf("legacyprofile: encode account: %w", err)
	}

	request, err := client.newRequest(ctx, http.MethodPost, "/api/v1/users", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", "application/json")

	created, err := client.do(ctx, request)
	if err != nil {
		return "", err
	}

	// Phoenix answers the uid as a number or a string depending on the endpoint version
	uid := gjson.GetBytes(created, "uid").String()
	if uid == "" {
		return "", errors.New("legacyprofile: registration returned no uid")
	}

	return uid, nil
}

/*
UIDByEmail returns the uid of the profile registered with email.

Returns:
  - string: Drupal uid
  - error: ErrNotFound when no profile matches
*/
func (client *Client) UIDByEmail(ctx context.Context, email string) (string, error) {
	query := url.Values{"parameters[email]": {email}}

	request, err := client.newRequest(ctx, http.MethodGet, "/api/v1/users?"+query.Encode(), http.NoBody)
	if err != nil {
		return "", err
	}

	profiles, err := client.do(ctx, request)
	if err != nil {
		return "", err
	}

	uid := gjson.GetBytes(profiles, "0.uid").String()
	if uid == "" {
		return "", ErrNotFound
	}

	return uid, nil
}

// newRequest builds an authenticated request against the Phoenix base URL.
func (client *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("legacyprofile: build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if client.username != "" {
		request.SetBasicAuth(client.username, client.password)
	}
	return request, nil
}

// do sends the request and returns a 2xx JSON body.
func (client *Client) do(ctx context.Context, request *http.Request) ([]byte, error) {
	response, err := client.doer.Do(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("legacyprofile: %s %s: %w", request.Method, request.URL.Path, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusForbidden:
		return nil, ErrForbidden
	case response.StatusCode < 200 || response.StatusCode > 299:
		return nil, fmt.Errorf("legacyprofile: %s %s: unexpected status %d", request.Method, request.URL.Path, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("legacyprofile: read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("legacyprofile: decode response: invalid JSON")
	}
	return body, nil
}
