// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// # Identity Constraints

const (
	// LegacyTokenLength is the byte length of a legacy session token.
	LegacyTokenLength = 32

	// resolveLimit is enough rows to tell one match from an ambiguous one.
	resolveLimit = 2
)

// # Metrics

var passwordMigrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_password_migrations_total",
	Help: "Legacy Drupal hashes replaced by bcrypt hashes",
})
