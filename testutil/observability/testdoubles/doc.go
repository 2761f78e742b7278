// Package testdoubles provides spy implementations of the eventlog
// observability interfaces. The spies capture calls for assertions and are
// safe for concurrent use.
package testdoubles
