// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package event publishes domain events about accounts and tokens to Kafka.

Publishing is best effort: callers log a failed publish and carry on, since
the state change it describes has already been committed.

Topics:

  - gatekeeper.user.upserted
  - gatekeeper.user.password_migrated
  - gatekeeper.oauth.refresh_revoked
*/
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/pkg/uuid"
)

// # Topics

const (
	TopicUserUpserted         = "gatekeeper.user.upserted"
	TopicUserPasswordMigrated = "gatekeeper.user.password_migrated"
	TopicOAuthRefreshRevoked  = "gatekeeper.oauth.refresh_revoked"
)

// # Envelope

// Event is the envelope of every message.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// New creates an event with a generated id and the current time.
func New(eventType, aggregateID, aggregateType string, data any) (*Event, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        constants.AppName,
		Data:          encoded,
	}, nil
}

// WithCorrelationID sets the correlation id, usually the request id.
func (event *Event) WithCorrelationID(id string) *Event {
	event.CorrelationID = id
	return event
}

// # Publisher

// Publisher sends events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

// Publish implements [Publisher].
func (Noop) Publish(context.Context, string, *Event) error { return nil }
