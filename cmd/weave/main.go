package main

import (
	"os"

	"github.com/kristofer/weave/cmd/weave/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
