// Command transcripts runs one-off transcript exports and prints export statistics
// against the interview database, using the same environment as the server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
