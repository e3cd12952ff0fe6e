// Package main provides the entry point for the artman CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/artman/cmd/artman/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
