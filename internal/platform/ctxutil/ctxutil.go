// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/gatekeeper/internal/platform/ctxkey"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// HasLogger reports whether a request logger was attached to the context.
func HasLogger(ctx context.Context) bool {
	_, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	return ok
}

// # Identity & Access

// WithSession returns a new context carrying the request's principal holder.
func WithSession(ctx context.Context, session *sec.Session) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, session)
}

// GetSession retrieves the [*sec.Session] from the [context.Context], or nil.
func GetSession(ctx context.Context) *sec.Session {
	session, ok := ctx.Value(ctxkey.KeySession).(*sec.Session)
	if !ok {
		return nil
	}
	return session
}

// WithPrincipal is shorthand for attaching a new session holding principal.
func WithPrincipal(ctx context.Context, principal *sec.Principal) context.Context {
	return WithSession(ctx, sec.NewSession(principal))
}

// GetPrincipal retrieves the current [*sec.Principal], or nil when unauthenticated.
func GetPrincipal(ctx context.Context) *sec.Principal {
	return GetSession(ctx).Principal()
}
