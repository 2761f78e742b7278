// Package toolapi exposes the event log engine to external callers through a
// tool-call convention: a statically declared registry maps each tool name to
// its description, input schema descriptor and handler function, and a thin
// JSON-RPC 2.0 framing serves tool discovery and invocation over
// line-delimited JSON.
//
// The registry is built at startup from a fixed table - no runtime type
// scanning, no reflection. Validation failures and concurrency conflicts are
// mapped to distinct, stable error codes so automated retry logic can
// distinguish "fix your input" from "re-read and retry".
package toolapi
