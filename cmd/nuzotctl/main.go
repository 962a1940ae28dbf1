// Package main is the entry point for the nuzotctl administration CLI.
package main

import (
	"github.com/PuzzleDev/NuZot/cmd"
)

func main() {
	cmd.Execute()
}
