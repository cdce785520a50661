// Package enveil provides the command-line interface for the Enveil tool.
// It configures subcommands (scan, protect, vault, hooks, etc.), parses
// flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/enveil/enveil/cmd/enveil"
//	func main() { enveil.Execute() }
package enveil
