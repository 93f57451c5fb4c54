// Package main is the entry point for the pos-journal CLI.
package main

import (
	"os"

	"github.com/pigeonworks-llc/pos-journal-sync/cmd/pos-journal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
