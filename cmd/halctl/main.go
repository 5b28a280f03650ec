// Command halctl fetches HAL resources through the data layer and prints every
// snapshot of the fetch as a JSON line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
