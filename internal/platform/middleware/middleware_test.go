// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/middleware"
)

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

/*
TestRealIP checks the header precedence used to identify callers.
*/
func TestRealIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"real_ip", map[string]string{constants.HeaderXRealIP: "10.0.0.1", constants.HeaderXForwardedFor: "10.0.0.2"}, "192.0.2.1:1234", "10.0.0.1"},
		{"forwarded_first_hop", map[string]string{constants.HeaderXForwardedFor: "10.0.0.2, 10.0.0.3"}, "192.0.2.1:1234", "10.0.0.2"},
		{"remote_addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote_without_port", nil, "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.remote
			for key, value := range tt.headers {
				request.Header.Set(key, value)
			}
			assert.Equal(t, tt.expected, middleware.RealIP(request))
		})
	}
}

/*
TestRequestID checks that a caller ID is kept and a missing one generated.
*/
func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "req-42")
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", recorder.Header().Get(constants.HeaderXRequestID))

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))
}

/*
TestStructuredLogger checks the summary line written for each request.
*/
func TestStructuredLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))

	handler := middleware.StructuredLogger(logger)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.True(t, ctxutil.HasLogger(request.Context()))
		writer.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/oauth/token", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &line))
	assert.Equal(t, "http_request_finished", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "/oauth/token", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
}

/*
TestRateLimiter checks that buckets are per API key, falling back to per IP.
*/
func TestRateLimiter(t *testing.T) {
	handler := middleware.NewRateLimiter(1, 2).Handler(okHandler)

	send := func(remote, apiKey string) int {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.RemoteAddr = remote
		if apiKey != "" {
			request.Header.Set(constants.HeaderAPIKey, apiKey)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1:1", ""))
	assert.Equal(t, http.StatusOK, send("192.0.2.1:2", ""))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1:3", ""))

	// Another address has its own bucket
	assert.Equal(t, http.StatusOK, send("192.0.2.2:1", ""))

	// A key follows the caller across addresses
	assert.Equal(t, http.StatusOK, send("192.0.2.1:4", "secret"))
	assert.Equal(t, http.StatusOK, send("192.0.2.3:1", "secret"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.4:1", "secret"))
}

type originPolicy struct {
	development bool
	origins     []string
}

func (policy originPolicy) IsDevelopment() bool      { return policy.development }
func (policy originPolicy) AllowedOrigins() []string { return policy.origins }

/*
TestCORS checks origin matching and preflight handling.
*/
func TestCORS(t *testing.T) {
	tests := []struct {
		name          string
		policy        originPolicy
		method        string
		origin        string
		preflight     bool
		expectAllowed bool
		expectStatus  int
	}{
		{"no_origin", originPolicy{}, http.MethodGet, "", false, false, http.StatusOK},
		{"listed_origin", originPolicy{origins: []string{"https://app.example.com"}}, http.MethodGet, "https://app.example.com", false, true, http.StatusOK},
		{"unlisted_origin", originPolicy{origins: []string{"https://app.example.com"}}, http.MethodGet, "https://evil.example.com", false, false, http.StatusOK},
		{"development_any_origin", originPolicy{development: true}, http.MethodGet, "http://localhost:3000", false, true, http.StatusOK},
		{"preflight", originPolicy{development: true}, http.MethodOptions, "http://localhost:3000", true, true, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				request.Header.Set(constants.HeaderOrigin, tt.origin)
			}
			if tt.preflight {
				request.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			recorder := httptest.NewRecorder()

			middleware.CORS(tt.policy)(okHandler).ServeHTTP(recorder, request)

			assert.Equal(t, tt.expectStatus, recorder.Code)
			if tt.expectAllowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Headers"), constants.HeaderAPIKey)
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

/*
TestPanicRecovery checks that a panic becomes a 500 with the error envelope.
*/
func TestPanicRecovery(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))

	handler := middleware.PanicRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.Contains(t, buffer.String(), "panic_recovered")
}
