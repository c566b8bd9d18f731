// Package main is the entry point for the cloudbudget CLI.
package main

import (
	"os"

	"cloudbudget/cmd/cloudbudget/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
