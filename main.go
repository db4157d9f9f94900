// The main package for the productfinder executable.
package main

import (
	"github.com/jadrxma/productfinder/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
