// Command piltsim simulates and validates PILT trial lists offline.
package main

import (
	"fmt"
	"os"

	"piltlab/internal/cli"
)

func main() {
	if err := cli.Execute(os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "piltsim:", err)
		os.Exit(1)
	}
}
