// Package fixtures provides domain events from a course subscription domain
// for tests: courses are defined, students register, and students subscribe to
// courses. Subscription events carry both a course tag and a student tag, so
// they exercise multi-tag filtering and cross-entity consistency boundaries.
package fixtures
