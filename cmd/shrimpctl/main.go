/*
Package main provides the CLI entry point for shrimpctl.
*/
package main

import (
	"os"

	"github.com/dukerupert/shrimptech/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
