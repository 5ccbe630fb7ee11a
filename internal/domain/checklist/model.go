package checklist

import (
	"time"

	"github.com/google/uuid"
)

// LogAction is the kind of a checklist audit entry.
type LogAction string

const (
	ActionCheck   LogAction = "check"
	ActionUncheck LogAction = "uncheck"
	ActionReset   LogAction = "reset"
)

// MaxLogEntries bounds the audit log; inserting beyond capacity evicts the
// oldest entry.
const MaxLogEntries = 50

// LogEntry is one immutable record of a checklist action. The log exists so
// an after-action review can reconstruct who confirmed what and when.
type LogEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Seq       int64     `db:"seq" json:"seq"`
	Timestamp time.Time `db:"ts" json:"timestamp"`
	ActorName string    `db:"actor_name" json:"actor_name"`
	Action    LogAction `db:"action" json:"action"`
	Item      *string   `db:"item" json:"item,omitempty"`
}

// State maps item labels to their checked flag. Items absent from the map
// are unchecked.
type State map[string]bool

// CategoryStatus is the per-category view assembled for the API.
type CategoryStatus struct {
	Name       string       `json:"name"`
	Items      []ItemStatus `json:"items"`
	Completion int          `json:"completion"`
}

type ItemStatus struct {
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// ResetPreview describes what a reset would discard. It is a pure query;
// obtaining operator confirmation is the caller's concern.
type ResetPreview struct {
	CheckedCount int `json:"checked_count"`
	TotalCount   int `json:"total_count"`
}
