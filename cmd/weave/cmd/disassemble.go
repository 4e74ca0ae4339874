package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kristofer/weave/pkg/compiler"
	"github.com/kristofer/weave/pkg/parser"
	"github.com/kristofer/weave/pkg/resolver"
)

var disassembleCmd = &cobra.Command{
	Use:   "disassemble <script>",
	Short: "Compile a script and print its bytecode",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			_ = cmd.Help()
			return errors.New("expected exactly one script argument")
		}
		return disassembleFile(args[0])
	},
}

func init() {
	rootCmd.AddCommand(disassembleCmd)
}

func disassembleFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	source := string(data)

	p := parser.New(source)
	script, parseErrors := p.Parse()
	if len(parseErrors) > 0 {
		for _, pe := range parseErrors {
			fmt.Fprintln(os.Stderr, pe.FormatWithSource(source))
		}
		return errors.New("parse failed")
	}

	symbols, semErrors := resolver.New(script).Analyze()
	if len(semErrors) > 0 {
		for _, se := range semErrors {
			fmt.Fprintln(os.Stderr, se.FormatWithSource(source))
		}
		return errors.New("resolution failed")
	}

	chunk, err := compiler.New(symbols).Compile(script)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	fmt.Print(chunk.Disassemble(path))
	return nil
}
