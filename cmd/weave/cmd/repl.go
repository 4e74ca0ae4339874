package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kristofer/weave/pkg/hoststate"
	"github.com/kristofer/weave/pkg/storage"
	"github.com/kristofer/weave/pkg/weave"
)

// replCmd runs a buffered, line-oriented session: type (or paste) a
// script, then a lone ":run" line compiles and plays it against a fresh
// in-memory store. Modeled on kristofer/smog's runREPL, re-keyed from
// period-terminated statement buffering to a script-buffer-plus-sentinel
// since this language's blocks are indentation-terminated rather than
// period-terminated.
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Buffer a script interactively and run it",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyTraceLevel()
		runREPL()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runREPL() {
	fmt.Println("weave REPL")
	fmt.Println("Type or paste a script, then a lone ':run' line to play it. ':quit' to exit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	var buffer strings.Builder

	for {
		if buffer.Len() == 0 {
			fmt.Print("weave> ")
		} else {
			fmt.Print("....> ")
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case ":quit", ":exit":
			fmt.Println("Goodbye!")
			return
		case ":run":
			playREPLScript(buffer.String())
			buffer.Reset()
			continue
		}

		buffer.WriteString(line)
		buffer.WriteString("\n")
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
	}
}

func playREPLScript(source string) {
	store := storage.NewMemoryStorage()
	runtime, err := weave.New(source, store, hoststate.EmptyHostState{})
	if err != nil {
		printREPLError(err, source)
		return
	}

	replScanner := bufio.NewScanner(os.Stdin)
	for runtime.HasMore() {
		if runtime.IsWaitingForChoice() {
			choices := runtime.CurrentChoices()
			for i, choice := range choices {
				fmt.Printf("  %d. %s\n", i+1, choice)
			}
			fmt.Print("> ")
			if !replScanner.Scan() {
				return
			}
			index, convErr := strconv.Atoi(strings.TrimSpace(replScanner.Text()))
			if convErr != nil || index < 1 || index > len(choices) {
				fmt.Println("invalid choice")
				continue
			}
			if err := runtime.SelectChoice(index - 1); err != nil {
				printREPLError(err, source)
				return
			}
			continue
		}

		fmt.Println(runtime.CurrentLine())
		if err := runtime.Advance(); err != nil {
			printREPLError(err, source)
			return
		}
	}
	if line := runtime.CurrentLine(); line != "" {
		fmt.Println(line)
	}
}

func printREPLError(err error, source string) {
	if werr, ok := err.(*weave.Error); ok {
		fmt.Fprintln(os.Stderr, werr.FormatWithSource(source))
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
