// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the cross-cutting HTTP processing chain.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Log: A request-scoped slog logger and one summary line per request.
  - Guard: Rate limiting, CORS, and caller authentication ([Authenticate]).
  - Safe: Panic recovery.
  - Observe: Prometheus request metrics.
*/
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Request Tracing

// RequestID attaches a correlation ID to every request, reusing the caller's
// X-Request-ID when one is sent.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get(constants.HeaderXRequestID)
			if requestID == "" {
				if id, err := uuid.NewV7(); err == nil {
					requestID = id.String()
				} else {
					requestID = uuid.NewString()
				}
			}

			writer.Header().Set(constants.HeaderXRequestID, requestID)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithRequestID(request.Context(), requestID)))
		})
	}
}

// # Activity Logging

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

/*
StructuredLogger installs the request logger and the principal holder, then
logs one line per request once the response is written.

Description: The holder is created here, before [Authenticate] runs, so that
the summary line can name the caller, including a user that logged in during
the request.
*/
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", RealIP(request)),
			)

			session := sec.NewSession(nil)
			ctx := ctxutil.WithSession(ctxutil.WithLogger(request.Context(), requestLogger), session)
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(recorder, request.WithContext(ctx))

			attributes := []any{
				slog.Int("status", recorder.status),
				slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			}
			attributes = append(attributes, callerAttributes(session.Principal())...)

			requestLogger.Log(ctx, levelFor(recorder.status), "http_request_finished", attributes...)
		})
	}
}

// callerAttributes describes the authenticated caller, if any.
func callerAttributes(principal *sec.Principal) []any {
	if principal == nil {
		return nil
	}

	attributes := []any{
		slog.String("auth_scheme", string(principal.Scheme)),
		slog.String("client_id", principal.ClientID),
	}
	if principal.HasUser() {
		attributes = append(attributes, slog.String("user_id", principal.UserID))
	}
	return attributes
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// # Middleware Helpers

// RealIP extracts the client IP, trusting X-Real-IP and then the first
// X-Forwarded-For hop.
func RealIP(request *http.Request) string {
	if ip := request.Header.Get(constants.HeaderXRealIP); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
