// Command tauc is the driver for the toolchain: it owns the source
// buffer and all file I/O (spec.md §5 assigns both to the driver, never
// to the lexer/parser/analyzer/emitter packages) and exposes lex, parse,
// build, and run subcommands over a spf13/cobra command tree, the same
// library termfx-morfx's demo/cmd/main.go wires for its own CLI.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportFatal(err)
		os.Exit(1)
	}
}
