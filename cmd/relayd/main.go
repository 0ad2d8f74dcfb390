// Command relayd serves the chat relay: a pooled, throttled front end for a
// generative text backend.
package main

import (
	"fmt"
	"os"
)

// Set via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
