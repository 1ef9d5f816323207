package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/tauc/internal/logger"
)

var lexCmd = &cobra.Command{
	Use:   "lex <file>",
	Short: "Scan a source file and print its token stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toks, err := lexSource(args[0])
		if err != nil {
			return err
		}
		logger.Info("lexed source", "file", args[0], "tokens", len(toks))
		for _, t := range toks {
			fmt.Printf("%-6d %-12s %q\n", t.Kind, t.Loc.String(), t.Lexeme())
		}
		return nil
	},
}
