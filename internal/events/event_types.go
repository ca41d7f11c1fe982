package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserDeleted     EventType = "user_deleted"
	EventUserActivity    EventType = "user_activity_changed"
	EventCardLimitExceed EventType = "card_limit_exceeded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	AggregateID int64       `json:"aggregate_id"`
	Actor       string      `json:"actor,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, aggregateID int64, actor string, payload interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		Actor:       actor,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
}

// UserDeletedPayload lists the cards removed together with the user.
type UserDeletedPayload struct {
	CardIDs []int64 `json:"card_ids"`
}

// UserActivityPayload payload.
type UserActivityPayload struct {
	Active bool `json:"active"`
}

// CardLimitPayload payload.
type CardLimitPayload struct {
	Limit int `json:"limit"`
}
