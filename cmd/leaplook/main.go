// Package main is the leaplook command.
package main

import (
	"os"

	"github.com/leapstack-labs/leaplook/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
