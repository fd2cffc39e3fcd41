// Package sse implements Server-Sent Events so local UIs can follow sync
// progress and library changes without polling.
package sse

import (
	"time"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventSyncStarted fires when a sync run begins.
	EventSyncStarted EventType = "sync.started"
	// EventSyncSucceeded fires when a sync run completes.
	EventSyncSucceeded EventType = "sync.succeeded"
	// EventSyncFailed fires when a sync run fails.
	EventSyncFailed EventType = "sync.failed"

	// EventBookAdded fires when a book enters the library.
	EventBookAdded EventType = "book.added"
	// EventBookUpdated fires when a book's content or metadata changes.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted fires when a book is removed.
	EventBookDeleted EventType = "book.deleted"
	// EventLibraryReplaced fires when a download swaps the whole library.
	EventLibraryReplaced EventType = "library.replaced"

	// EventBackendStatus fires when backend connectivity changes.
	EventBackendStatus EventType = "backend.status"

	// EventHeartbeat keeps idle connections alive.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one SSE payload. Data carries the event-specific body as a JSON
// object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Type      EventType `json:"type"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType EventType, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewHeartbeatEvent builds a keepalive event.
func NewHeartbeatEvent() Event {
	return NewEvent(EventHeartbeat, nil)
}
