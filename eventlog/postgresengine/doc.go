// Package postgresengine provides a durable Postgres-backed implementation of
// the event log engine with the same contract as memoryengine.
//
// Events live in one shared table ordered by an explicit position column.
// Appends are guarded by a conditional INSERT ... SELECT: a CTE computes the
// log's current position (the row count) and the insert only takes effect when
// it equals the caller's lastKnownPosition, which also becomes the new row's
// position. Zero rows affected means another writer won the race and the
// caller gets eventlog.ErrConcurrencyConflict.
//
// The engine supports three database adapter paths (pgx pool, database/sql,
// sqlx) behind one internal interface, and optional read replica routing
// driven by the context consistency level (see eventlog.WithEventualConsistency).
package postgresengine
