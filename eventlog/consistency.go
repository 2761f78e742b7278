package eventlog

import "context"

// ConsistencyLevel defines the consistency requirements for EventLog operations.
type ConsistencyLevel int

const (
	// StrongConsistency requires reads from the primary database to ensure
	// read-after-write consistency. This is the default for EventLog operations:
	// an append decision based on a stale read would be rejected anyway, but the
	// caller would burn a retry round-trip for nothing.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from replica databases, trading
	// consistency for performance. Suitable for pure catch-up queries that can
	// tolerate slightly stale data in exchange for a reduced load on the
	// primary database.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "eventlog.consistency_level"

// WithStrongConsistency returns a context that signals EventLog operations
// should use the primary database for strong consistency guarantees.
//
// This is typically used by callers that perform read-check-append patterns
// and need to ensure they see the most recent state.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that signals EventLog operations
// may use replica databases for eventual consistency, trading consistency for
// performance.
//
// This is typically used by catch-up readers that resume from a known
// position and can tolerate slightly stale data.
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context.
// If no consistency level is set, it returns StrongConsistency as the safe
// default for read-check-append workflows.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging and debugging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
