package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/logger"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse and semantically analyze a source file, reporting diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prog, a, err := analyzeSource(args[0])
		if err != nil {
			return err
		}
		reportWarnings(a.Warnings())
		logger.Info("analyzed source", "file", args[0], "declarations", len(prog.List))
		fmt.Printf("ok: %d top-level declaration(s)\n", len(prog.List))
		for _, decl := range prog.List {
			fmt.Printf("  %s %s\n", declKind(decl), decl.Name)
		}
		return nil
	},
}

func declKind(n *ast.Node) string {
	switch n.Kind {
	case ast.NodeFunDecl:
		return "fun"
	case ast.NodeVarDecl:
		return "var"
	case ast.NodeConstDecl:
		return "const"
	case ast.NodeStructDecl:
		return "struct"
	case ast.NodeUnionDecl:
		return "union"
	case ast.NodeEnumDecl:
		return "enum"
	case ast.NodeModDecl:
		return "mod"
	default:
		return "decl"
	}
}
