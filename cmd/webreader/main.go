// Package main is the entry point for the Web Reader CLI.
package main

import (
	"os"

	"github.com/f3rmion/webreader/cmd/webreader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
