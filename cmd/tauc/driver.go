package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/diag"
	"github.com/gmofishsauce/tauc/internal/lexer"
	"github.com/gmofishsauce/tauc/internal/parser"
	"github.com/gmofishsauce/tauc/internal/sema"
	"github.com/gmofishsauce/tauc/internal/token"
)

var errBold = color.New(color.FgRed, color.Bold).SprintFunc()

// readSource loads path into memory; the driver is the sole owner of
// source buffers and file handles per spec.md §5.
func readSource(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tauc: %w", err)
	}
	return src, nil
}

// reportFatal renders a fatal error to stderr. A *lexer.Error carries its
// own source location and becomes a proper diag.Diagnostic; every other
// error (parser, sema) already embeds "loc: message" in its text, so it is
// printed as-is in bold red rather than re-parsed back into a Diagnostic.
func reportFatal(err error) {
	if lexErr, ok := err.(*lexer.Error); ok {
		fmt.Fprint(os.Stderr, diag.New(lexErr.Loc, lexErr.Kind, lexErr.Msg).Render())
		return
	}
	fmt.Fprintln(os.Stderr, errBold(err.Error()))
}

func reportWarnings(warnings []diag.Diagnostic) {
	for _, w := range warnings {
		fmt.Fprint(os.Stderr, w.Render())
	}
}

// lexSource runs the lexer stage only.
func lexSource(path string) ([]*token.Token, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return lexer.New(path, src).Lex()
}

// parseSource runs lex+parse, returning the program AST.
func parseSource(path string) (*ast.Node, error) {
	toks, err := lexSource(path)
	if err != nil {
		return nil, err
	}
	prog, _, err := parser.ParseProgram(toks)
	return prog, err
}

// analyzeSource runs lex+parse+sema, returning the annotated program and
// the analyzer holding its descriptor table and type builder.
func analyzeSource(path string) (*ast.Node, *sema.Analyzer, error) {
	prog, err := parseSource(path)
	if err != nil {
		return nil, nil, err
	}
	a := sema.New()
	if err := a.Analyze(prog); err != nil {
		return nil, nil, err
	}
	return prog, a, nil
}
