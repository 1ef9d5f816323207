package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/tauc/internal/bytecode"
	"github.com/gmofishsauce/tauc/internal/logger"
)

var buildOutput string

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a source file to a .tbc bytecode file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prog, a, err := analyzeSource(args[0])
		if err != nil {
			return err
		}
		reportWarnings(a.Warnings())

		code, err := bytecode.Emit(prog, a.Descs(), a.Builder())
		if err != nil {
			return err
		}

		out := buildOutput
		if out == "" {
			out = defaultBytecodePath(args[0])
		}
		if err := os.WriteFile(out, code, 0644); err != nil {
			return fmt.Errorf("tauc: %w", err)
		}
		logger.Info("wrote bytecode", "file", out, "bytes", len(code))
		fmt.Printf("wrote %s (%d bytes)\n", out, len(code))
		return nil
	},
}

func defaultBytecodePath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + ".tbc"
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output .tbc path (default: <file> with .tbc extension)")
}
