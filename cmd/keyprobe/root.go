package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for keyprobe.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyprobe",
		Short: "Find Google AI API keys in text and check which are live",
		Long: `keyprobe extracts Google AI API keys (AIza...) from files or stdin and
probes each one against the Generative Language API concurrently.

Active keys are reported with the models they can reach. Keys are masked
in all output unless --reveal is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
