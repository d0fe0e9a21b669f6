// Command memo is the terminal client for memopad. It talks to a memo server
// with a saved session token, or with --local to a SQLite file of its own.
package main

import (
	"fmt"
	"os"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
