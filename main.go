// The main package for the tally executable.
package main

import (
	"github.com/JakeFAU/tally/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
