// Package eventlog provides the core types for an append-only event log with
// dynamic consistency boundaries.
//
// Instead of partitioning events into per-aggregate streams, every event lives
// in one shared, position-ordered log and carries tags that correlate it with
// the business entities it concerns. Invariants that span multiple entities
// are enforced by querying the log with tag/type specifications and appending
// under an optimistic concurrency token.
//
// Key types:
//   - Tag: an (entity, id) pair correlating an event with a business entity
//   - Event: an immutable log record with position, type, tags and payload
//   - Specification: a single filter predicate over event type and tag membership
//   - Query: an ordered list of specifications plus position/page bounds
//   - EventLog: the engine contract implemented by memoryengine and postgresengine
//
// Common usage pattern:
//
//	studentTag, _ := eventlog.NewTag("student", "s1")
//	courseTag, _ := eventlog.NewTag("course", "c1")
//
//	spec, _ := eventlog.SpecOfAllTags(studentTag, courseTag)
//	query, _ := eventlog.BuildQuery().
//		Matching(spec).
//		Finalize()
//
//	events, err := log.Query(ctx, query)
//	if err != nil {
//		// handle error
//	}
//
//	position, _ := log.CurrentPosition(ctx)
//	newEvent, _ := eventlog.BuildEvent("StudentSubscribed", []eventlog.Tag{studentTag, courseTag}, payload)
//	stored, err := log.Append(ctx, newEvent, query, position)
package eventlog
