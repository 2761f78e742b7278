// Command eventlogd serves the event log's tool API over stdin/stdout,
// backed by either the in-memory engine or the Postgres engine.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
