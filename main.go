// Package main is the entry point for the sqlai CLI.
package main

import (
	"sqlai/cli/cmd"
)

func main() {
	cmd.Execute()
}
