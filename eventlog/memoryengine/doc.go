// Package memoryengine provides the in-memory implementation of the event log
// engine.
//
// It owns the ordered sequence of events and the monotonic position counter
// behind one exclusive mutex: appends and queries are mutually exclusive,
// trading read concurrency for a trivially consistent snapshot view. A query
// never observes a partially appended event and an append never races another
// append. All operations are synchronous; no background tasks, no internal
// retry loop.
//
// This engine is memory-resident only. For a durable log with the same
// contract see the postgresengine package.
package memoryengine
