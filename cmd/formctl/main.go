// Command formctl drives server-rendered registration forms from the
// terminal: it fetches a page, fills the form, and submits it with the same
// client-side behaviour a browser would apply.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "formctl: %s\n", err)
		os.Exit(1)
	}
}
