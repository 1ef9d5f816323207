package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/tauc/internal/bytecode"
	"github.com/gmofishsauce/tauc/internal/logger"
	"github.com/gmofishsauce/tauc/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <file.tbc>",
	Short: "Load a compiled .tbc file and execute it on the VM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("tauc: %w", err)
		}
		m := vm.New(code)
		if verbose {
			m.Trace = func(ip int64, op bytecode.Opcode) {
				logger.Debug("trace", "ip", ip, "op", op.String())
			}
		}
		if err := m.Run(); err != nil {
			return fmt.Errorf("tauc: %w", err)
		}
		top, err := m.StackTop(bytecode.Width64)
		if err == nil {
			fmt.Printf("halted; stack top (64-bit) = %d\n", top)
		}
		return nil
	},
}
