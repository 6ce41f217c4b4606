package eventstore

import (
	"context"
	"time"
)

// Store is an append-only build event log. Reads return events in the order
// they were appended.
type Store interface {
	Append(ctx context.Context, event Event) error
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)
	// GetRange returns events whose timestamp falls in [start, end].
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
