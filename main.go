// Package main is the nuzot launcher. It forwards its arguments, untouched,
// to the configured downstream entry point and exits with that entry point's status.
package main

import (
	"os"

	"github.com/PuzzleDev/NuZot/cmd"
)

func main() {
	os.Exit(cmd.Launch(os.Args[1:]))
}
