package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kristofer/weave/pkg/hoststate"
	"github.com/kristofer/weave/pkg/storage"
	"github.com/kristofer/weave/pkg/weave"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a weave script to completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyTraceLevel()
		if len(args) != 1 {
			_ = cmd.Help()
			return errors.New("expected exactly one script argument")
		}
		return runScript(args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func openStorage() (storage.VariableStorage, func() error, error) {
	if storagePath == "" {
		return storage.NewMemoryStorage(), func() error { return nil }, nil
	}
	fs, err := storage.OpenFileStorage(storagePath)
	if err != nil {
		return nil, nil, err
	}
	return fs, fs.Flush, nil
}

func runScript(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	store, flush, err := openStorage()
	if err != nil {
		return err
	}

	runtime, err := weave.New(string(source), store, hoststate.EmptyHostState{})
	if err != nil {
		var werr *weave.Error
		if errors.As(err, &werr) {
			fmt.Fprintln(os.Stderr, werr.FormatWithSource(string(source)))
		}
		return err
	}

	if err := driveToCompletion(runtime, string(source)); err != nil {
		return err
	}

	if err := flush(); err != nil {
		logrus.WithError(err).Warn("failed to persist storage")
	}
	return nil
}

// driveToCompletion prints lines and choices, prompting a keypress for
// each, until the runtime has no more content.
func driveToCompletion(runtime *weave.Runtime, source string) error {
	for runtime.HasMore() {
		if runtime.IsWaitingForChoice() {
			choices := runtime.CurrentChoices()
			for i, choice := range choices {
				fmt.Printf("  %d. %s\n", i+1, choice)
			}
			index, err := promptChoice(len(choices))
			if err != nil {
				return err
			}
			if err := runtime.SelectChoice(index); err != nil {
				return reportRuntimeError(err, source)
			}
			continue
		}

		fmt.Println(runtime.CurrentLine())
		if runtime.HasMore() {
			if _, err := readKey(); err != nil {
				return err
			}
		}
		if err := runtime.Advance(); err != nil {
			return reportRuntimeError(err, source)
		}
	}
	if line := runtime.CurrentLine(); line != "" {
		fmt.Println(line)
	}
	return nil
}

func promptChoice(count int) (int, error) {
	for {
		key, err := readKey()
		if err != nil {
			return 0, err
		}
		if key >= '1' && int(key-'1') < count {
			return int(key - '1'), nil
		}
	}
}

func reportRuntimeError(err error, source string) error {
	var werr *weave.Error
	if errors.As(err, &werr) {
		fmt.Fprintln(os.Stderr, werr.FormatWithSource(source))
	}
	return err
}
