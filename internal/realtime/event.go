// Package realtime provides a broadcast bus for core lifecycle events, so
// dashboards/CLIs watching a running instance see events as they happen.
// cmd/timescaped publishes revision demotions and snapshot runs; the other
// event types below are declared but nothing in this module publishes them.
package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Event is one broadcastable occurrence.
type Event struct {
	Type      string                 `json:"type"`
	ID        string                 `json:"id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Sequence  int64                  `json:"sequence"`
}

// Event types emitted by the core components.
const (
	EventTypeRevisionDemoted     = "revision_demoted"
	EventTypeRevisionReactivated = "revision_reactivated"
	EventTypeSnapshotTaken       = "snapshot_taken"
	EventTypeSchemaApplied       = "schema_applied"
	EventTypeSchemaRolledBack    = "schema_rolled_back"
	EventTypeTagRebound          = "tag_rebound"
)

// Event sources.
const (
	EventSourceLifecycle = "lifecycle"
	EventSourceSnapshot  = "snapshot"
	EventSourceSchema    = "schema"
	EventSourceRegistry  = "registry"
)

// NewEvent builds an Event with a fresh ID and current timestamp; Sequence
// is assigned by the bus on Publish.
func NewEvent(eventType string, data map[string]interface{}, source string) Event {
	return Event{
		Type:      eventType,
		ID:        uuid.New().String(),
		Data:      data,
		Timestamp: time.Now(),
		Source:    source,
	}
}
