package core

import "time"

type EventType string

// Coordination event types. Every reservation mutation and lock recovery
// emits one of these into the journal and onto the websocket stream.
const (
	EventReservationClaimed  EventType = "reservation.claimed"
	EventReservationRenewed  EventType = "reservation.renewed"
	EventReservationReleased EventType = "reservation.released"
	EventReservationConflict EventType = "reservation.conflict"
	EventLockBroken          EventType = "lock.broken"
)

// Event is one entry in the coordination journal.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Project     string    `json:"project"`
	Agent       string    `json:"agent,omitempty"`
	PathPattern string    `json:"path_pattern,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Cursor      uint64    `json:"cursor,omitempty"`
}
