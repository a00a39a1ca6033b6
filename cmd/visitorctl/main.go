// Command visitorctl classifies, imports and summarizes visitor data from
// the command line.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
