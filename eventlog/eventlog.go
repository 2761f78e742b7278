package eventlog

import (
	"context"
)

// EventLog defines the contract for the append-only event log engine.
// Implementations must be safe for concurrent use.
//
// Implementations must guarantee:
//   - Positions are assigned 0, 1, 2, ... in append order; CurrentPosition
//     after N successful appends equals N.
//   - Append either fully commits (position assigned, entry visible) or fully
//     rejects (no entry added); no partial state is ever observable.
//   - Events are never mutated, removed or reordered after append.
type EventLog interface {
	// Append appends a not-yet-positioned event under an optimistic
	// concurrency guard: it fails with ErrConcurrencyConflict unless
	// lastKnownPosition equals the log's current position. The boundary Query
	// is the consistency boundary the caller based its decision on; it is
	// accepted for context but the conflict check is global, not scoped to
	// the boundary's tags. A negative lastKnownPosition fails with
	// ErrNegativePosition wrapped in ErrAppendingEventFailed. On success the
	// stored event with the authoritative position is returned.
	//
	// Retry on conflict is entirely the caller's responsibility; see
	// RetryWithExponentialBackoff.
	Append(ctx context.Context, event Event, boundary Query, lastKnownPosition PositionInt64) (Event, error)

	// Query returns the events matching the query in ascending position
	// order: AND across specifications, FromPosition as inclusive lower
	// bound, PageSize as prefix cap. It never mutates the log. A query beyond
	// the log's end returns an empty slice, not an error.
	Query(ctx context.Context, query Query) (Events, error)

	// CurrentPosition returns the number of events appended so far, i.e. the
	// position the next event will receive. Callers use it to seed
	// lastKnownPosition before an append and as the resume point for
	// catch-up queries.
	CurrentPosition(ctx context.Context) (PositionInt64, error)
}
