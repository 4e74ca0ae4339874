package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:          "weave",
		Short:        "weave",
		SilenceUsage: true,
		Long:         `A runtime and CLI for the weave dialogue scripting language.`,
	}

	trace       bool
	storagePath string
)

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "log every VM instruction dispatched")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "path to a YAML save file (defaults to in-memory storage)")
	return rootCmd.Execute()
}

func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

func applyTraceLevel() {
	if trace {
		logrus.SetLevel(logrus.DebugLevel)
	}
}
