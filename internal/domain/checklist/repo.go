package checklist

import "context"

// Repository persists the per-post checklist state and its audit log.
// State and log are stored independently: a reset clears the state blob but
// never touches existing log entries.
type Repository interface {
	GetState(ctx context.Context) (State, error)
	SetItem(ctx context.Context, label string, checked bool) error
	ClearState(ctx context.Context) error

	AddLogEntry(ctx context.Context, e *LogEntry) error
	// TrimLog evicts the oldest entries so that at most keep remain.
	TrimLog(ctx context.Context, keep int) error
	// ListLog returns up to limit entries, newest first.
	ListLog(ctx context.Context, limit int) ([]*LogEntry, error)
}
